package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/argenfuego/eva/internal/email"
)

const ProviderName email.ProviderName = "smtp"

type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{logger: log.With(slog.String("adapter", "smtp"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "SMTP",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "username", Type: "string", Title: "Username", Required: true, Example: "eva@argenfuego.com", Order: 1},
				{Key: "password", Type: "secret", Title: "Password", Required: true, Order: 2},
				{Key: "smtp_host", Type: "string", Title: "SMTP Host", Required: true, Example: "smtp.gmail.com", Order: 3},
				{Key: "smtp_port", Type: "number", Title: "SMTP Port", Example: 587, Order: 4},
				{Key: "smtp_security", Type: "enum", Title: "SMTP Security", Enum: []string{"tls", "starttls", "none"}, Example: "starttls", Order: 5},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	for _, key := range []string{"smtp_host", "username", "password"} {
		if v, _ := raw[key].(string); strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}
	if _, ok := raw["smtp_port"]; !ok {
		raw["smtp_port"] = float64(587)
	}
	security, _ := raw["smtp_security"].(string)
	switch security {
	case "":
		raw["smtp_security"] = "starttls"
	case "tls", "starttls", "none":
	default:
		return nil, fmt.Errorf("unsupported smtp_security: %s", security)
	}
	return raw, nil
}

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	m, err := buildMessage(config, msg)
	if err != nil {
		return "", err
	}
	client, err := mail.NewClient(stringVal(config["smtp_host"]), clientOptions(config)...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return m.GetMessageID(), nil
}

func buildMessage(config map[string]any, msg email.OutboundEmail) (*mail.Msg, error) {
	from := strings.TrimSpace(msg.FromAddress)
	if from == "" {
		from = stringVal(config["username"])
	}

	m := mail.NewMsg()
	if name := strings.TrimSpace(msg.FromName); name != "" {
		if err := m.FromFormat(name, from); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	} else if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Template != nil:
		if err := m.SetBodyHTMLTemplate(msg.Template, msg.Data); err != nil {
			return nil, fmt.Errorf("render html body: %w", err)
		}
		if strings.TrimSpace(msg.Body) != "" {
			m.AddAlternativeString(mail.TypeTextPlain, msg.Body)
		}
	case msg.HTML:
		m.SetBodyString(mail.TypeTextHTML, msg.Body)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}
	m.SetMessageID()
	return m, nil
}

func clientOptions(config map[string]any) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(intVal(config["smtp_port"], 587)),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(stringVal(config["username"])),
		mail.WithPassword(stringVal(config["password"])),
	}
	switch stringVal(config["smtp_security"]) {
	case "tls":
		opts = append(opts, mail.WithSSLPort(false), mail.WithTLSPolicy(mail.TLSMandatory))
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	return opts
}

func stringVal(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// intVal accepts the numeric shapes produced by TOML (int64) and JSON (float64).
func intVal(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
