package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/argenfuego/eva/internal/healthcheck"
	"github.com/argenfuego/eva/internal/knowledge"
)

// StatsSource reports knowledge-base health.
type StatsSource interface {
	Stats(ctx context.Context) knowledge.Stats
}

type StatusHandler struct {
	stats    StatsSource
	checkers []healthcheck.Checker
	logger   *slog.Logger
}

func NewStatusHandler(log *slog.Logger, stats StatsSource, checkers ...healthcheck.Checker) *StatusHandler {
	return &StatusHandler{stats: stats, checkers: checkers, logger: log.With(slog.String("handler", "status"))}
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/status", h.Status)
	e.GET("/health/checks", h.Checks)
}

type IndexResponse struct {
	Message   string            `json:"mensaje"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index godoc
// @Summary List public endpoints
// @Tags status
// @Success 200 {object} IndexResponse
// @Router / [get]
func (h *StatusHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, IndexResponse{
		Message: "Eva - asistente de Argenfuego funcionando",
		Endpoints: map[string]string{
			"webhook":       "/webhook",
			"probar":        "/test",
			"probar_simple": "/test-simple",
			"estado":        "/status",
		},
	})
}

func (h *StatusHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *StatusHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Status godoc
// @Summary Knowledge base status
// @Description Reports whether the vector index answers and how many vectors the namespace holds
// @Tags status
// @Success 200 {object} knowledge.Stats
// @Failure 503 {object} knowledge.Stats
// @Router /status [get]
func (h *StatusHandler) Status(c echo.Context) error {
	if h.stats == nil {
		return c.JSON(http.StatusServiceUnavailable, knowledge.Stats{})
	}
	stats := h.stats.Stats(c.Request().Context())
	if !stats.Active {
		return c.JSON(http.StatusServiceUnavailable, stats)
	}
	return c.JSON(http.StatusOK, stats)
}

// Checks godoc
// @Summary Runtime dependency checks
// @Description Runs every registered checker; 503 when any check is in error
// @Tags status
// @Success 200 {object} healthcheck.Report
// @Failure 503 {object} healthcheck.Report
// @Router /health/checks [get]
func (h *StatusHandler) Checks(c echo.Context) error {
	report := healthcheck.Run(c.Request().Context(), h.checkers...)
	code := http.StatusOK
	if report.Status == healthcheck.StatusError {
		code = http.StatusServiceUnavailable
		h.logger.Warn("health checks failing", slog.Int("checks", len(report.Checks)))
	}
	return c.JSON(code, report)
}
