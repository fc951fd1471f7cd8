package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/argenfuego/eva/internal/logger"
)

// TestUserID is the session key used by the /test endpoint.
const TestUserID = "test_user"

// ChatHandler serves the messaging webhook and the manual test endpoints.
type ChatHandler struct {
	processor Processor
	logger    *slog.Logger
}

func NewChatHandler(log *slog.Logger, processor Processor) *ChatHandler {
	return &ChatHandler{processor: processor, logger: log.With(slog.String("handler", "chat"))}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/webhook", h.Webhook)
	e.POST("/test", h.Test)
	e.GET("/test-simple", h.TestSimple)
}

type TestResponse struct {
	Message string `json:"mensaje"`
	Reply   string `json:"respuesta"`
	UserID  string `json:"user_id,omitempty"`
}

// Webhook godoc
// @Summary Messaging gateway webhook
// @Description Accepts a Twilio-style form post (Body, From) and answers with the reply as plain text
// @Tags chat
// @Accept x-www-form-urlencoded
// @Produce plain
// @Param Body formData string true "Message text"
// @Param From formData string true "Sender id, e.g. whatsapp:+5491112345678"
// @Success 200 {string} string
// @Failure 400 {object} ErrorResponse
// @Router /webhook [post]
func (h *ChatHandler) Webhook(c echo.Context) error {
	from := strings.TrimSpace(c.FormValue("From"))
	if from == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "From is required")
	}
	body := c.FormValue("Body")
	res := h.processor.Process(turnContext(c), from, body)
	h.logger.Info("webhook replied",
		slog.String(logger.UserIDKey, from),
		slog.String("state", string(res.State)))
	return c.String(http.StatusOK, res.Reply)
}

// Test godoc
// @Summary Try the assistant without a messaging gateway
// @Tags chat
// @Accept x-www-form-urlencoded
// @Param mensaje formData string true "Message text"
// @Success 200 {object} TestResponse
// @Router /test [post]
func (h *ChatHandler) Test(c echo.Context) error {
	msg := c.FormValue("mensaje")
	res := h.processor.Process(turnContext(c), TestUserID, msg)
	return c.JSON(http.StatusOK, TestResponse{Message: msg, Reply: res.Reply})
}

// TestSimple godoc
// @Summary Try the assistant with query parameters
// @Tags chat
// @Param mensaje query string true "Message text"
// @Param user_id query string false "Session key" default(test_user)
// @Success 200 {object} TestResponse
// @Failure 400 {object} ErrorResponse
// @Router /test-simple [get]
func (h *ChatHandler) TestSimple(c echo.Context) error {
	msg := c.QueryParam("mensaje")
	if !c.QueryParams().Has("mensaje") {
		return echo.NewHTTPError(http.StatusBadRequest, "mensaje is required")
	}
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		userID = TestUserID
	}
	res := h.processor.Process(turnContext(c), userID, msg)
	return c.JSON(http.StatusOK, TestResponse{Message: msg, Reply: res.Reply, UserID: userID})
}

// turnContext keeps request values but drops cancellation: a client that
// hangs up must not fail the guard stages open mid-turn.
func turnContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}
