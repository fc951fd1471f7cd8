package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/argenfuego/eva/internal/auth"
)

// Handler registers its routes on the shared echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

type Server struct {
	echo *echo.Echo
	addr string
}

// OperatorPrefixes are the route prefixes that require an operator token.
var OperatorPrefixes = []string{"/debug/"}

// NewServer builds the HTTP server with panic recovery, request logging and
// operator auth on OperatorPrefixes, and registers every non-nil handler.
func NewServer(log *slog.Logger, addr string, jwtSecret string, handlers ...Handler) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.ProtectPrefixes(jwtSecret, OperatorPrefixes...))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
