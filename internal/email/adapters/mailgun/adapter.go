package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/argenfuego/eva/internal/email"
)

const ProviderName email.ProviderName = "mailgun"

type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{logger: log.With(slog.String("adapter", "mailgun"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "Mailgun",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "domain", Type: "string", Title: "Domain", Required: true, Example: "mg.argenfuego.com", Order: 1},
				{Key: "api_key", Type: "secret", Title: "API Key", Required: true, Order: 2},
				{Key: "region", Type: "enum", Title: "Region", Enum: []string{"us", "eu"}, Example: "us", Order: 3},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	for _, key := range []string{"domain", "api_key"} {
		if v, _ := raw[key].(string); strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}
	region, _ := raw["region"].(string)
	switch strings.ToLower(strings.TrimSpace(region)) {
	case "":
		raw["region"] = "us"
	case "us", "eu":
		raw["region"] = strings.ToLower(strings.TrimSpace(region))
	default:
		return nil, fmt.Errorf("unsupported region: %s", region)
	}
	return raw, nil
}

func newClient(config map[string]any) *mg.Client {
	apiKey, _ := config["api_key"].(string)
	client := mg.NewMailgun(apiKey)
	if region, _ := config["region"].(string); region == "eu" {
		client.SetAPIBase(mg.APIBaseEU)
	}
	return client
}

// fromHeader formats the sender, defaulting to noreply@<domain>.
func fromHeader(domain string, msg email.OutboundEmail) string {
	addr := strings.TrimSpace(msg.FromAddress)
	if addr == "" {
		addr = fmt.Sprintf("noreply@%s", domain)
	}
	if name := strings.TrimSpace(msg.FromName); name != "" {
		return fmt.Sprintf("%s <%s>", name, addr)
	}
	return addr
}

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	domain, _ := config["domain"].(string)
	html, err := email.RenderHTML(msg)
	if err != nil {
		return "", err
	}
	text := msg.Body
	if msg.HTML && msg.Template == nil {
		text = ""
	}

	m := mg.NewMessage(domain, fromHeader(domain, msg), msg.Subject, text, msg.To...)
	if html != "" {
		m.SetHTML(html)
	}

	resp, err := newClient(config).Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	a.logger.Debug("mailgun accepted message", slog.String("id", resp.ID))
	return resp.ID, nil
}
