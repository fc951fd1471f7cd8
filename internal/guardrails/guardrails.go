// Package guardrails screens inbound messages and outbound replies.
//
// Input runs two stages, moderation then topic, each toggled independently
// and fail-open: a provider error lets the text through and is logged as
// degraded mode. Output runs moderation only.
package guardrails

import (
	"context"
	"log/slog"
	"time"
)

type Reason string

const (
	ReasonNone                 Reason = "none"
	ReasonInappropriateContent Reason = "inappropriate_content"
	ReasonOutOfScope           Reason = "out_of_scope"
)

// Canonical user-facing texts.
const (
	OutOfScopeReply = "Perdon, no puedo ayudarte con eso, me especializo unicamente en temas de seguridad contra incendios"
	InappropriateReply = "Por favor, mantengamos una conversación respetuosa. " +
		"Estoy aquí para ayudarte con consultas sobre seguridad contra incendios. 🙏"
	OutputFallbackReply = "Disculpa, hubo un problema procesando tu consulta. " +
		"¿Podrías reformular tu pregunta sobre seguridad contra incendios? 🔥"
)

const defaultStageTimeout = 8 * time.Second

// Result is the outcome of a validation.
type Result struct {
	Valid         bool     `json:"valid"`
	Reason        Reason   `json:"reason"`
	RejectionText string   `json:"rejection_text,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

func passed() Result {
	return Result{Valid: true, Reason: ReasonNone}
}

// Moderation is a moderation verdict for one text.
type Moderation struct {
	Flagged    bool
	Categories []string
}

// Moderator flags unsafe or abusive text.
type Moderator interface {
	Moderate(ctx context.Context, text string) (Moderation, error)
}

// TopicClassifier decides whether text belongs to the business domain.
type TopicClassifier interface {
	InScope(ctx context.Context, text string) (bool, error)
}

// Config toggles the individual stages.
type Config struct {
	EnableInputModeration  bool
	EnableTopicValidation  bool
	EnableOutputModeration bool
	StageTimeout           time.Duration
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func logBlocked(log *slog.Logger, blockType, detail string) {
	log.Warn("content_blocked", slog.String("block_type", blockType), slog.String("detail", detail))
}
