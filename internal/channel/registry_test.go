package channel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainAdapter struct{ ct ChannelType }

func (a plainAdapter) Type() ChannelType { return a.ct }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newFakeGateway("Telegram")))
	require.NoError(t, reg.Register(plainAdapter{ct: "audit"}))

	_, ok := reg.Get("telegram")
	assert.True(t, ok)

	sender, ok := reg.GetSender("TELEGRAM")
	assert.True(t, ok)
	assert.NotNil(t, sender)

	_, ok = reg.GetSender("audit")
	assert.False(t, ok)

	assert.Equal(t, []ChannelType{"audit", "telegram"}, reg.Types())
	require.Len(t, reg.Receivers(), 1)
}

func TestRegistry_RejectsDuplicatesAndBlank(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(plainAdapter{ct: "webhook"}))
	assert.Error(t, reg.Register(plainAdapter{ct: " Webhook "}))
	assert.Error(t, reg.Register(plainAdapter{ct: "  "}))
	assert.Error(t, reg.Register(nil))
	assert.Panics(t, func() { reg.MustRegister(plainAdapter{ct: "webhook"}) })
}

func TestBaseConnection_StopOnce(t *testing.T) {
	calls := 0
	conn := NewConnection("telegram", func(context.Context) error {
		calls++
		return nil
	})
	assert.True(t, conn.Running())
	require.NoError(t, conn.Stop(context.Background()))
	require.NoError(t, conn.Stop(context.Background()))
	assert.False(t, conn.Running())
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, NewConnection("x", nil).Stop(context.Background()), ErrStopNotSupported)
}

func TestInboundMessage_SessionKey(t *testing.T) {
	assert.Equal(t, "telegram:42", InboundMessage{Channel: "telegram", ChatID: "42", SenderID: "7"}.SessionKey())
	assert.Equal(t, "telegram:7", InboundMessage{Channel: "telegram", SenderID: "7"}.SessionKey())
	assert.Equal(t, "", InboundMessage{Channel: "telegram"}.SessionKey())
}
