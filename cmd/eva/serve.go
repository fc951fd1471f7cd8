package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/argenfuego/eva/internal/channel"
	"github.com/argenfuego/eva/internal/channel/adapters/telegram"
	"github.com/argenfuego/eva/internal/config"
	"github.com/argenfuego/eva/internal/dispatch"
	"github.com/argenfuego/eva/internal/email"
	"github.com/argenfuego/eva/internal/handlers"
	channelchecker "github.com/argenfuego/eva/internal/healthcheck/checkers/channel"
	emailchecker "github.com/argenfuego/eva/internal/healthcheck/checkers/email"
	knowledgechecker "github.com/argenfuego/eva/internal/healthcheck/checkers/knowledge"
	"github.com/argenfuego/eva/internal/knowledge"
	"github.com/argenfuego/eva/internal/pipeline"
	"github.com/argenfuego/eva/internal/server"
	"github.com/argenfuego/eva/internal/session"
	"github.com/argenfuego/eva/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and messaging gateways",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(serveOptions(configPath(cmd)))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func serveOptions(cfgPath string) fx.Option {
	return fx.Options(
		coreModule(cfgPath),
		fx.Provide(
			provideChannelRegistry,
			provideChannelManager,
			provideSweeper,
			provideServerHandler(provideStatusHandler),
			provideServerHandler(provideChatHandler),
			provideServerHandler(provideDebugHandler),
			provideServer,
		),
		fx.Invoke(
			startSweeper,
			startChannelManager,
			startServer,
		),
	)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideStatusHandler(log *slog.Logger, retriever *knowledge.Retriever, manager *channel.Manager, mail *email.Service, cfg config.Config) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, retriever,
		knowledgechecker.NewChecker(retriever),
		channelchecker.NewChecker(log, manager),
		emailchecker.NewChecker(mail, cfg.Email.Recipient),
	)
}

func provideChatHandler(log *slog.Logger, orch *pipeline.Orchestrator) *handlers.ChatHandler {
	return handlers.NewChatHandler(log, orch)
}

func provideDebugHandler(log *slog.Logger, store session.Store, notifier *dispatch.EmailNotifier, cfg config.Config) *handlers.DebugHandler {
	return handlers.NewDebugHandler(log, store, notifier, cfg.Email.Recipient)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(p serverParams) *server.Server {
	if p.Config.Auth.JWTSecret == "" {
		p.Logger.Warn("auth.jwt_secret is empty; /debug endpoints are disabled")
	}
	return server.NewServer(p.Logger, p.Config.Server.Addr, p.Config.Auth.JWTSecret, p.Handlers...)
}

func provideChannelRegistry(log *slog.Logger, cfg config.Config) *channel.Registry {
	registry := channel.NewRegistry()
	if cfg.Telegram.Enabled {
		registry.MustRegister(telegram.NewTelegramAdapter(log, cfg.Telegram.BotToken))
	}
	return registry
}

func provideChannelManager(log *slog.Logger, registry *channel.Registry, orch *pipeline.Orchestrator) *channel.Manager {
	return channel.NewManager(log, registry, orch)
}

func provideSweeper(log *slog.Logger, store session.Store, cfg config.Config) *session.Sweeper {
	return session.NewSweeper(log, store, config.Duration(cfg.Session.TTL, session.DefaultTTL), cfg.Session.SweepSchedule)
}

func startSweeper(lc fx.Lifecycle, sweeper *session.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return sweeper.Start() },
		OnStop:  func(ctx context.Context) error { sweeper.Stop(ctx); return nil },
	})
}

func startChannelManager(lc fx.Lifecycle, manager *channel.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { manager.Start(ctx); return nil },
		OnStop:  func(stopCtx context.Context) error { cancel(); return manager.Shutdown(stopCtx) },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting eva", slog.String("version", version.GetInfo()), slog.String("addr", srv.Addr()))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
