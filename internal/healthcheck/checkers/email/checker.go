package emailchecker

import (
	"context"
	"strings"

	"github.com/argenfuego/eva/internal/email"
	"github.com/argenfuego/eva/internal/healthcheck"
)

const checkTypeLeadDelivery = "email.lead_delivery"

// DeliveryInfo is the part of email.Service the checker reads.
type DeliveryInfo interface {
	Enabled() bool
	Provider() email.ProviderName
}

// Checker warns when captured leads cannot be delivered.
type Checker struct {
	info      DeliveryInfo
	recipient string
}

func NewChecker(info DeliveryInfo, recipient string) *Checker {
	return &Checker{info: info, recipient: strings.TrimSpace(recipient)}
}

func (c *Checker) ListChecks(context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:     checkTypeLeadDelivery,
		Type:   checkTypeLeadDelivery,
		Status: healthcheck.StatusOK,
	}
	switch {
	case c.info == nil || !c.info.Enabled():
		item.Status = healthcheck.StatusWarn
		item.Summary = "Email delivery is disabled; leads are not dispatched."
	case c.recipient == "":
		item.Status = healthcheck.StatusError
		item.Summary = "Lead recipient is not configured."
	default:
		item.Summary = "Leads are delivered via " + string(c.info.Provider()) + "."
		item.Metadata = map[string]any{"provider": string(c.info.Provider())}
	}
	return []healthcheck.CheckResult{item}
}
