package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrDisabled is returned by a Service built without a provider.
var ErrDisabled = errors.New("email delivery disabled")

// ServiceConfig selects the adapter and the envelope defaults.
type ServiceConfig struct {
	Provider       ProviderName
	ProviderConfig map[string]any
	SenderAddress  string
	SenderName     string
	Timeout        time.Duration
}

// Service sends mail through the single configured adapter.
type Service struct {
	sender Sender
	config map[string]any
	cfg    ServiceConfig
	logger *slog.Logger
}

// NewService resolves and validates the adapter named in cfg. An empty or
// "none" provider yields a Service whose Send always fails with ErrDisabled.
func NewService(log *slog.Logger, registry *Registry, cfg ServiceConfig) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{cfg: cfg, logger: log.With(slog.String("service", "email"))}
	name := ProviderName(strings.TrimSpace(string(cfg.Provider)))
	if name == "" || name == "none" {
		return s, nil
	}
	adapter, err := registry.Get(name)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(cfg.ProviderConfig))
	for k, v := range cfg.ProviderConfig {
		raw[k] = v
	}
	normalized, err := adapter.NormalizeConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", name, err)
	}
	sender, err := registry.GetSender(name)
	if err != nil {
		return nil, err
	}
	s.sender = sender
	s.config = normalized
	return s, nil
}

// Enabled reports whether a sender is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.sender != nil
}

// Provider returns the configured adapter name.
func (s *Service) Provider() ProviderName {
	return s.cfg.Provider
}

func (s *Service) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if len(msg.To) == 0 {
		return "", errors.New("at least one recipient is required")
	}
	if msg.FromAddress == "" {
		msg.FromAddress = s.cfg.SenderAddress
	}
	if msg.FromName == "" {
		msg.FromName = s.cfg.SenderName
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	id, err := s.sender.Send(ctx, s.config, msg)
	if err != nil {
		s.logger.Error("email send failed", slog.String("provider", string(s.cfg.Provider)), slog.Any("error", err))
		return "", err
	}
	s.logger.Info("email sent",
		slog.String("provider", string(s.cfg.Provider)),
		slog.String("message_id", id),
		slog.String("subject", msg.Subject))
	return id, nil
}
