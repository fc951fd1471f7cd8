// Package dispatch hands a ready lead to the sales team, at most once per session.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/argenfuego/eva/internal/lead"
	"github.com/argenfuego/eva/internal/logger"
)

// ErrNotifierUnavailable is returned by notifiers with no working transport.
var ErrNotifierUnavailable = errors.New("lead notifier unavailable")

const defaultNotifyTimeout = 15 * time.Second

// Notifier delivers a lead to the sales team.
type Notifier interface {
	Notify(ctx context.Context, rec lead.Record, sessionKey string) error
}

// Claimer is the slice of the session store that guards the dispatch flag.
type Claimer interface {
	ClaimDispatch(ctx context.Context, userID string) (bool, error)
	ReleaseDispatch(ctx context.Context, userID string) error
}

// Decider decides whether a lead should be sent and performs the send.
type Decider struct {
	claims   Claimer
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

func NewDecider(log *slog.Logger, claims Claimer, notifier Notifier, timeout time.Duration) *Decider {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &Decider{
		claims:   claims,
		notifier: notifier,
		timeout:  timeout,
		logger:   log.With(slog.String("service", "dispatch")),
	}
}

// TryDispatch sends rec when it is ready and not yet dispatched. It returns the
// confirmation reply and true only when this call delivered the lead.
func (d *Decider) TryDispatch(ctx context.Context, rec lead.Record, sessionKey string) (string, bool) {
	if rec.Dispatched || !lead.Ready(rec) {
		return "", false
	}
	log := d.logger.With(slog.String(logger.UserIDKey, sessionKey))

	won, err := d.claims.ClaimDispatch(ctx, sessionKey)
	if err != nil {
		log.Error("dispatch claim failed", slog.Any("error", err))
		return "", false
	}
	if !won {
		log.Debug("lead already dispatched")
		return "", false
	}

	notifyCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.notify(notifyCtx, rec, sessionKey); err != nil {
		log.Error("lead notification failed", slog.Any("error", err))
		if relErr := d.claims.ReleaseDispatch(context.WithoutCancel(ctx), sessionKey); relErr != nil {
			log.Error("dispatch release failed", slog.Any("error", relErr))
		}
		return "", false
	}
	log.Info("lead dispatched", slog.String("intent", truncate(rec.Intent, 50)))
	return ConfirmationReply(rec.Name), true
}

func (d *Decider) notify(ctx context.Context, rec lead.Record, sessionKey string) (err error) {
	if d.notifier == nil {
		return ErrNotifierUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return d.notifier.Notify(ctx, rec, sessionKey)
}

// ConfirmationReply is the message shown to the customer after a dispatch.
func ConfirmationReply(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "✅ Perfecto! Envié tu consulta al equipo comercial de Argenfuego. Te contactarán pronto por WhatsApp o email 🔥"
	}
	return fmt.Sprintf("✅ Perfecto %s! Envié tu consulta al equipo comercial de Argenfuego. Te contactarán pronto por WhatsApp o email 🔥", name)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
