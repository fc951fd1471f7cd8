package guardrails

import (
	"context"
	"log/slog"
	"strings"
)

// InputGuard validates user messages before any generation work happens.
type InputGuard struct {
	moderator  Moderator
	classifier TopicClassifier
	cfg        Config
	logger     *slog.Logger
}

func NewInputGuard(log *slog.Logger, moderator Moderator, classifier TopicClassifier, cfg Config) *InputGuard {
	if log == nil {
		log = slog.Default()
	}
	return &InputGuard{
		moderator:  moderator,
		classifier: classifier,
		cfg:        cfg,
		logger:     log.With(slog.String("service", "input_guard")),
	}
}

// Validate runs moderation then topic classification; the first failing stage wins.
func (g *InputGuard) Validate(ctx context.Context, text string) Result {
	if g.cfg.EnableInputModeration && g.moderator != nil {
		if res, blocked := g.moderate(ctx, text); blocked {
			return res
		}
	} else {
		g.logger.Debug("input moderation skipped", slog.String("reason", "disabled"))
	}

	if g.cfg.EnableTopicValidation && g.classifier != nil {
		if res, blocked := g.checkTopic(ctx, text); blocked {
			return res
		}
	} else {
		g.logger.Debug("topic validation skipped", slog.String("reason", "disabled"))
	}
	return passed()
}

func (g *InputGuard) moderate(ctx context.Context, text string) (Result, bool) {
	stageCtx, cancel := stageContext(ctx, g.cfg.StageTimeout)
	defer cancel()

	verdict, err := g.moderator.Moderate(stageCtx, text)
	if err != nil {
		g.logger.Error("input moderation unavailable, degraded mode", slog.Any("error", err))
		return Result{}, false
	}
	if !verdict.Flagged {
		return Result{}, false
	}
	logBlocked(g.logger, "profanity", strings.Join(verdict.Categories, ","))
	return Result{
		Valid:         false,
		Reason:        ReasonInappropriateContent,
		RejectionText: InappropriateReply,
		Categories:    verdict.Categories,
	}, true
}

func (g *InputGuard) checkTopic(ctx context.Context, text string) (Result, bool) {
	stageCtx, cancel := stageContext(ctx, g.cfg.StageTimeout)
	defer cancel()

	ok, err := g.classifier.InScope(stageCtx, text)
	if err != nil {
		g.logger.Error("topic validation unavailable, degraded mode", slog.Any("error", err))
		return Result{}, false
	}
	if ok {
		return Result{}, false
	}
	logBlocked(g.logger, "topic-drift", preview(text, 50))
	return Result{
		Valid:         false,
		Reason:        ReasonOutOfScope,
		RejectionText: OutOfScopeReply,
	}, true
}
