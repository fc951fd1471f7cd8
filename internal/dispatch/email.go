package dispatch

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/argenfuego/eva/internal/email"
	"github.com/argenfuego/eva/internal/lead"
)

//go:embed templates/lead.html
var templatesFS embed.FS

var leadTemplate = template.Must(template.ParseFS(templatesFS, "templates/lead.html"))

const (
	notProvided     = "No proporcionado"
	notSpecified    = "No especificada"
	defaultIntent   = "Consulta general"
	observations    = "Lead capturado automáticamente por Eva"
	subjectIntentN  = 40
	whatsappPrefix  = "whatsapp:"
	timestampLayout = "02/01/2006 15:04"
)

// Mailer is the part of email.Service the notifier needs.
type Mailer interface {
	Send(ctx context.Context, msg email.OutboundEmail) (string, error)
}

// EmailNotifier sends each lead as an HTML email to the sales inbox.
type EmailNotifier struct {
	mailer    Mailer
	recipient string
	now       func() time.Time
}

func NewEmailNotifier(mailer Mailer, recipient string) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, recipient: strings.TrimSpace(recipient), now: time.Now}
}

// LeadView is the data rendered into the lead email.
type LeadView struct {
	Date         string
	Name         string
	Phone        string
	Email        string
	HasEmail     bool
	Intent       string
	Location     string
	Observations string
}

func (n *EmailNotifier) Notify(ctx context.Context, rec lead.Record, sessionKey string) error {
	if n.mailer == nil {
		return ErrNotifierUnavailable
	}
	if n.recipient == "" {
		return errors.New("lead recipient is not configured")
	}
	view := n.view(rec, sessionKey)
	_, err := n.mailer.Send(ctx, email.OutboundEmail{
		To:       []string{n.recipient},
		Subject:  Subject(rec, view.Phone),
		Body:     plainText(view),
		Template: leadTemplate,
		Data:     view,
	})
	if err != nil {
		return fmt.Errorf("send lead email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) view(rec lead.Record, sessionKey string) LeadView {
	return LeadView{
		Date:         n.now().Format(timestampLayout),
		Name:         orDefault(rec.Name, notProvided),
		Phone:        Phone(sessionKey),
		Email:        orDefault(rec.Email, notProvided),
		HasEmail:     strings.TrimSpace(rec.Email) != "",
		Intent:       orDefault(rec.Intent, defaultIntent),
		Location:     orDefault(rec.Location, notSpecified),
		Observations: observations,
	}
}

// Phone strips the messaging gateway prefix from a sender id.
func Phone(sessionKey string) string {
	return strings.TrimPrefix(strings.TrimSpace(sessionKey), whatsappPrefix)
}

// Subject builds "🔥 NUEVO LEAD WhatsApp - <name or last 4 digits> (<intent>)".
func Subject(rec lead.Record, phone string) string {
	who := strings.TrimSpace(rec.Name)
	if who == "" {
		r := []rune(phone)
		if len(r) > 4 {
			r = r[len(r)-4:]
		}
		who = string(r)
	}
	intent := orDefault(rec.Intent, defaultIntent)
	short := truncate(intent, subjectIntentN)
	if short != intent {
		short += "..."
	}
	return fmt.Sprintf("🔥 NUEVO LEAD WhatsApp - %s (%s)", who, short)
}

func plainText(v LeadView) string {
	var b strings.Builder
	b.WriteString("=== NUEVO LEAD - Eva WhatsApp Bot ===\n\n")
	fmt.Fprintf(&b, "Fecha: %s\n\n", v.Date)
	fmt.Fprintf(&b, "Nombre: %s\nWhatsApp: %s\nEmail: %s\n\n", v.Name, v.Phone, v.Email)
	fmt.Fprintf(&b, "Intención: %s\nUbicación/Detalles: %s\n\n", v.Intent, v.Location)
	fmt.Fprintf(&b, "Observaciones: %s\n\n", v.Observations)
	fmt.Fprintf(&b, "Próximos pasos:\n• Contactar al cliente por WhatsApp: %s\n", v.Phone)
	if v.HasEmail {
		fmt.Fprintf(&b, "• Enviar cotización por email: %s\n", v.Email)
	}
	b.WriteString("• Agendar visita técnica si es necesario\n• Hacer seguimiento de la propuesta\n")
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
