package chat

import (
	"context"
	"log/slog"
	"strings"
)

// TechnicalProblemsReply is returned whenever a completion cannot be produced.
const TechnicalProblemsReply = "Disculpa, tengo problemas técnicos en este momento 🤖"

// GeneratorConfig holds the completion parameters used for every reply.
type GeneratorConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generator produces the assistant reply for one turn.
type Generator struct {
	provider Provider
	cfg      GeneratorConfig
	logger   *slog.Logger
}

func NewGenerator(log *slog.Logger, provider Provider, cfg GeneratorConfig) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		provider: provider,
		cfg:      cfg,
		logger:   log.With(slog.String("service", "chat")),
	}
}

// Generate never returns an empty string: provider errors and empty
// completions both yield TechnicalProblemsReply.
func (g *Generator) Generate(ctx context.Context, snippets string, firstInteraction bool, utterance string) string {
	if g == nil || g.provider == nil {
		return TechnicalProblemsReply
	}
	system := BuildSystemPrompt(snippets, firstInteraction)
	if system == FallbackPrompt {
		g.logger.Debug("rag context empty, using fallback prompt")
	} else {
		g.logger.Debug("rag context used", slog.Int("context_length", len(snippets)))
	}

	maxTokens := g.cfg.MaxTokens
	temperature := g.cfg.Temperature
	result, err := g.provider.Chat(ctx, Request{
		Model: g.cfg.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: utterance},
		},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		g.logger.Error("completion failed", slog.Any("error", err))
		return TechnicalProblemsReply
	}
	reply := strings.TrimSpace(result.Message.Content)
	if reply == "" {
		g.logger.Warn("completion returned empty content", slog.String("finish_reason", result.FinishReason))
		return TechnicalProblemsReply
	}
	return reply
}
