package guardrails

import (
	"context"
	"log/slog"
	"strings"
)

// OutputGuard moderates generated replies.
type OutputGuard struct {
	moderator Moderator
	cfg       Config
	logger    *slog.Logger
}

func NewOutputGuard(log *slog.Logger, moderator Moderator, cfg Config) *OutputGuard {
	if log == nil {
		log = slog.Default()
	}
	return &OutputGuard{
		moderator: moderator,
		cfg:       cfg,
		logger:    log.With(slog.String("service", "output_guard")),
	}
}

// Validate reports whether reply may be sent as-is. An empty reply is never valid.
func (g *OutputGuard) Validate(ctx context.Context, reply string) Result {
	if strings.TrimSpace(reply) == "" {
		return Result{Valid: false, Reason: ReasonInappropriateContent, RejectionText: OutputFallbackReply}
	}
	if !g.cfg.EnableOutputModeration || g.moderator == nil {
		g.logger.Debug("output validation skipped", slog.String("reason", "disabled"))
		return passed()
	}

	stageCtx, cancel := stageContext(ctx, g.cfg.StageTimeout)
	defer cancel()
	verdict, err := g.moderator.Moderate(stageCtx, reply)
	if err != nil {
		g.logger.Error("output moderation unavailable, degraded mode", slog.Any("error", err))
		return passed()
	}
	if verdict.Flagged {
		g.logger.Warn("output blocked", slog.String("reason", string(ReasonInappropriateContent)),
			slog.String("categories", strings.Join(verdict.Categories, ",")))
		return Result{
			Valid:         false,
			Reason:        ReasonInappropriateContent,
			RejectionText: OutputFallbackReply,
			Categories:    verdict.Categories,
		}
	}
	return passed()
}

// Filter returns reply when it passes validation, otherwise the fixed apology.
func (g *OutputGuard) Filter(ctx context.Context, reply string) (string, Result) {
	res := g.Validate(ctx, reply)
	if !res.Valid {
		return res.RejectionText, res
	}
	return reply, res
}
