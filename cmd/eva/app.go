package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/argenfuego/eva/internal/chat"
	"github.com/argenfuego/eva/internal/config"
	"github.com/argenfuego/eva/internal/db"
	"github.com/argenfuego/eva/internal/dispatch"
	"github.com/argenfuego/eva/internal/email"
	emailmailgun "github.com/argenfuego/eva/internal/email/adapters/mailgun"
	emailsmtp "github.com/argenfuego/eva/internal/email/adapters/smtp"
	"github.com/argenfuego/eva/internal/embeddings"
	"github.com/argenfuego/eva/internal/guardrails"
	"github.com/argenfuego/eva/internal/knowledge"
	"github.com/argenfuego/eva/internal/logger"
	"github.com/argenfuego/eva/internal/pipeline"
	"github.com/argenfuego/eva/internal/session"
)

// coreModule provides everything needed to process a turn. serve and chat
// both build on it.
func coreModule(cfgPath string) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (config.Config, error) { return provideConfig(cfgPath) },
			provideLogger,
			provideChatProvider,
			provideEmbedder,
			provideQdrantStore,
			provideRetriever,
			provideInputGuard,
			provideOutputGuard,
			provideGenerator,
			provideSessionStore,
			provideEmailRegistry,
			provideEmailService,
			provideLeadNotifier,
			provideDecider,
			provideOrchestrator,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
	)
}

func provideConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.PIIMasking)
	return logger.L
}

func provideChatProvider(cfg config.Config) (*chat.OpenAIProvider, error) {
	p, err := chat.NewOpenAIProvider(cfg.Chat.APIKey, cfg.Chat.BaseURL, config.Duration(cfg.Chat.Timeout, 30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("chat provider: %w", err)
	}
	return p, nil
}

func provideEmbedder(log *slog.Logger, cfg config.Config) (embeddings.Embedder, error) {
	e, err := embeddings.NewOpenAIEmbedder(log, cfg.Chat.APIKey, cfg.Chat.BaseURL, cfg.Embeddings.Model, config.Duration(cfg.Embeddings.Timeout, 10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	return e, nil
}

func provideQdrantStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*knowledge.QdrantStore, error) {
	q := cfg.Qdrant
	store, err := knowledge.NewQdrantStore(log, q.BaseURL, q.APIKey, q.Collection, time.Duration(q.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("qdrant init: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
	return store, nil
}

func provideRetriever(log *slog.Logger, embedder embeddings.Embedder, store *knowledge.QdrantStore, cfg config.Config) *knowledge.Retriever {
	return knowledge.NewRetriever(log, embedder, store, cfg.Knowledge.Namespace, cfg.Knowledge.SimilarityThreshold)
}

func guardConfig(cfg config.Config) guardrails.Config {
	g := cfg.Guardrails
	return guardrails.Config{
		EnableInputModeration:  g.EnableInputModeration,
		EnableTopicValidation:  g.EnableTopicValidation,
		EnableOutputModeration: g.EnableOutputModeration,
		StageTimeout:           config.Duration(g.StageTimeout, 8*time.Second),
	}
}

func buildModerator(cfg config.Config, provider *chat.OpenAIProvider) guardrails.Moderator {
	if cfg.Guardrails.ModerationProvider == "keywords" {
		return guardrails.NewKeywordModerator()
	}
	return guardrails.NewOpenAIModerator(provider.Client(), cfg.Guardrails.ModerationModel)
}

func provideInputGuard(log *slog.Logger, cfg config.Config, provider *chat.OpenAIProvider) *guardrails.InputGuard {
	var classifier guardrails.TopicClassifier
	if cfg.Guardrails.TopicClassifier == "keywords" {
		classifier = guardrails.NewKeywordClassifier()
	} else {
		classifier = guardrails.NewLLMTopicClassifier(provider, cfg.Chat.Model)
	}
	return guardrails.NewInputGuard(log, buildModerator(cfg, provider), classifier, guardConfig(cfg))
}

func provideOutputGuard(log *slog.Logger, cfg config.Config, provider *chat.OpenAIProvider) *guardrails.OutputGuard {
	return guardrails.NewOutputGuard(log, buildModerator(cfg, provider), guardConfig(cfg))
}

func provideGenerator(log *slog.Logger, provider *chat.OpenAIProvider, cfg config.Config) *chat.Generator {
	return chat.NewGenerator(log, provider, chat.GeneratorConfig{
		Model:       cfg.Chat.Model,
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
	})
}

func provideSessionStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (session.Store, error) {
	ttl := config.Duration(cfg.Session.TTL, session.DefaultTTL)
	if cfg.Session.Backend != "postgres" {
		return session.NewMemoryStore(ttl), nil
	}
	if err := db.Migrate(log, cfg.Postgres); err != nil {
		return nil, err
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { pool.Close(); return nil }})
	return session.NewPostgresStore(pool, ttl), nil
}

func provideEmailRegistry(log *slog.Logger) *email.Registry {
	reg := email.NewRegistry()
	reg.Register(emailsmtp.New(log))
	reg.Register(emailmailgun.New(log))
	return reg
}

func provideEmailService(log *slog.Logger, reg *email.Registry, cfg config.Config) (*email.Service, error) {
	e := cfg.Email
	var providerCfg map[string]any
	switch email.ProviderName(e.Provider) {
	case emailsmtp.ProviderName:
		providerCfg = e.SMTP
	case emailmailgun.ProviderName:
		providerCfg = e.Mailgun
	}
	return email.NewService(log, reg, email.ServiceConfig{
		Provider:       email.ProviderName(e.Provider),
		ProviderConfig: providerCfg,
		SenderAddress:  e.SenderAddress,
		SenderName:     e.SenderName,
		Timeout:        config.Duration(e.Timeout, 15*time.Second),
	})
}

func provideLeadNotifier(svc *email.Service, cfg config.Config) *dispatch.EmailNotifier {
	return dispatch.NewEmailNotifier(svc, cfg.Email.Recipient)
}

func provideDecider(log *slog.Logger, store session.Store, notifier *dispatch.EmailNotifier, cfg config.Config) *dispatch.Decider {
	return dispatch.NewDecider(log, store, notifier, config.Duration(cfg.Email.Timeout, 15*time.Second))
}

type orchestratorParams struct {
	fx.In

	Logger    *slog.Logger
	Config    config.Config
	Input     *guardrails.InputGuard
	Output    *guardrails.OutputGuard
	Retriever *knowledge.Retriever
	Generator *chat.Generator
	Decider   *dispatch.Decider
	Sessions  session.Store
}

func provideOrchestrator(p orchestratorParams) (*pipeline.Orchestrator, error) {
	return pipeline.NewOrchestrator(p.Logger, pipeline.Deps{
		Input:     p.Input,
		Output:    p.Output,
		Retriever: p.Retriever,
		Generator: p.Generator,
		Dispatch:  p.Decider,
		Sessions:  p.Sessions,
		Locks:     session.NewKeyedMutex(),
		TopK:      p.Config.Knowledge.TopK,
	})
}
