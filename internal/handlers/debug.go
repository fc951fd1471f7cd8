package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/argenfuego/eva/internal/dispatch"
	"github.com/argenfuego/eva/internal/email"
	"github.com/argenfuego/eva/internal/lead"
	"github.com/argenfuego/eva/internal/logger"
	"github.com/argenfuego/eva/internal/session"
)

// SessionLister lists live sessions.
type SessionLister interface {
	List(ctx context.Context) ([]session.Session, error)
}

// LeadNotifier delivers a lead to the sales inbox.
type LeadNotifier interface {
	Notify(ctx context.Context, rec lead.Record, sessionKey string) error
}

// DebugHandler exposes operator diagnostics. User ids are never returned in clear.
type DebugHandler struct {
	sessions  SessionLister
	notifier  LeadNotifier
	recipient string
	logger    *slog.Logger
}

func NewDebugHandler(log *slog.Logger, sessions SessionLister, notifier LeadNotifier, recipient string) *DebugHandler {
	return &DebugHandler{
		sessions:  sessions,
		notifier:  notifier,
		recipient: recipient,
		logger:    log.With(slog.String("handler", "debug")),
	}
}

func (h *DebugHandler) Register(e *echo.Echo) {
	e.GET("/debug/sessions", h.ListSessions)
	e.POST("/debug/email", h.SendTestEmail)
}

type SessionSummary struct {
	UserHash             string    `json:"user_hash"`
	FirstInteractionSeen bool      `json:"first_interaction_seen"`
	Dispatched           bool      `json:"dispatched"`
	HasIntent            bool      `json:"has_intent"`
	HasName              bool      `json:"has_name"`
	HasEmail             bool      `json:"has_email"`
	HasLocation          bool      `json:"has_location"`
	LastActiveAt         time.Time `json:"last_active_at"`
}

type ListSessionsResponse struct {
	Status        string           `json:"status"`
	Sessions      []SessionSummary `json:"user_sessions"`
	TotalSessions int              `json:"total_sessions"`
}

// ListSessions godoc
// @Summary List live sessions
// @Description Returns hashed user ids, session flags and which lead fields are captured
// @Tags debug
// @Success 200 {object} ListSessionsResponse
// @Failure 500 {object} ErrorResponse
// @Router /debug/sessions [get]
func (h *DebugHandler) ListSessions(c echo.Context) error {
	items, err := h.sessions.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list sessions failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]SessionSummary, 0, len(items))
	for _, s := range items {
		var rec lead.Record
		if len(s.State) > 0 {
			if err := json.Unmarshal(s.State, &rec); err != nil {
				h.logger.Warn("decode lead state failed", slog.String(logger.UserIDKey, s.UserID), slog.Any("error", err))
			}
		}
		out = append(out, SessionSummary{
			UserHash:             logger.HashUserID(s.UserID),
			FirstInteractionSeen: s.FirstInteractionSeen,
			Dispatched:           s.Dispatched,
			HasIntent:            rec.Intent != "",
			HasName:              rec.Name != "",
			HasEmail:             rec.Email != "",
			HasLocation:          rec.Location != "",
			LastActiveAt:         s.LastActiveAt,
		})
	}
	return c.JSON(http.StatusOK, ListSessionsResponse{Status: "success", Sessions: out, TotalSessions: len(out)})
}

type TestEmailResponse struct {
	Status string      `json:"status"`
	Lead   lead.Record `json:"lead_data_used"`
	SentTo string      `json:"sent_to"`
}

// sampleLead is sent by the test email endpoint.
var sampleLead = lead.Record{
	Intent:   "Necesita extintores para restaurant",
	Name:     "Carlos Test",
	Email:    "carlos.test@restaurant.com",
	Location: "CABA, zona Palermo",
}

const sampleSessionKey = "whatsapp:+5491112345678"

// SendTestEmail godoc
// @Summary Send a sample lead notification
// @Description Renders and sends a fixed sample lead through the configured email adapter
// @Tags debug
// @Success 200 {object} TestEmailResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /debug/email [post]
func (h *DebugHandler) SendTestEmail(c echo.Context) error {
	if h.notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lead notifier not configured")
	}
	if err := h.notifier.Notify(c.Request().Context(), sampleLead, sampleSessionKey); err != nil {
		h.logger.Error("test email failed", slog.Any("error", err))
		if errors.Is(err, email.ErrDisabled) || errors.Is(err, dispatch.ErrNotifierUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, TestEmailResponse{Status: "success", Lead: sampleLead, SentTo: h.recipient})
}
