package dispatch

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argenfuego/eva/internal/email"
	"github.com/argenfuego/eva/internal/lead"
)

type recordingMailer struct {
	msgs []email.OutboundEmail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.OutboundEmail) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.msgs = append(m.msgs, msg)
	return "id-1", nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "🔥 NUEVO LEAD WhatsApp - Juan (quiero cotizar)",
		Subject(lead.Record{Name: "Juan", Intent: "quiero cotizar"}, "+5491112345678"))

	long := "necesito extintores para un restaurant grande en Palermo con cocina"
	assert.Equal(t, "🔥 NUEVO LEAD WhatsApp - 5678 (necesito extintores para un restaurant g...)",
		Subject(lead.Record{Intent: long}, "+5491112345678"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "+5491112345678", Phone("whatsapp:+5491112345678"))
	assert.Equal(t, "tg-42", Phone("tg-42"))
}

func TestEmailNotifier_Notify(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewEmailNotifier(mailer, "ventas@argenfuego.com")
	n.now = func() time.Time { return time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC) }

	err := n.Notify(context.Background(), lead.Record{Intent: "quiero cotizar matafuegos", Name: "Juan", Email: "juan@x.com"}, "whatsapp:+5491112345678")
	require.NoError(t, err)
	require.Len(t, mailer.msgs, 1)

	msg := mailer.msgs[0]
	assert.Equal(t, []string{"ventas@argenfuego.com"}, msg.To)
	assert.Equal(t, "🔥 NUEVO LEAD WhatsApp - Juan (quiero cotizar matafuegos)", msg.Subject)
	assert.Contains(t, msg.Body, "WhatsApp: +5491112345678")
	assert.Contains(t, msg.Body, "Enviar cotización por email: juan@x.com")

	var buf bytes.Buffer
	require.NoError(t, msg.Template.Execute(&buf, msg.Data))
	html := buf.String()
	assert.Contains(t, html, "05/03/2026 14:30")
	assert.Contains(t, html, "5491112345678")
	assert.Contains(t, html, "juan@x.com")
}

func TestEmailNotifier_EscapesUserInput(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewEmailNotifier(mailer, "ventas@argenfuego.com")
	require.NoError(t, n.Notify(context.Background(), lead.Record{Intent: "<script>x</script>", Name: "Ana"}, "u1"))

	var buf bytes.Buffer
	require.NoError(t, mailer.msgs[0].Template.Execute(&buf, mailer.msgs[0].Data))
	assert.NotContains(t, buf.String(), "<script>")
	assert.NotContains(t, mailer.msgs[0].Body, "Enviar cotización por email")
}

func TestEmailNotifier_Errors(t *testing.T) {
	assert.ErrorIs(t, NewEmailNotifier(nil, "a@b.co").Notify(context.Background(), readyLead, "u1"), ErrNotifierUnavailable)
	assert.Error(t, NewEmailNotifier(&recordingMailer{}, "").Notify(context.Background(), readyLead, "u1"))
	assert.Error(t, NewEmailNotifier(&recordingMailer{err: errors.New("down")}, "a@b.co").Notify(context.Background(), readyLead, "u1"))
}
