package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argenfuego/eva/internal/channel"
)

type fakeBotAPI struct {
	mu      sync.Mutex
	served  bool
	updates string
	sent    []map[string]string
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Eva","username":"eva_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.mu.Lock()
			body := `[]`
			if !f.served && f.updates != "" {
				body = f.updates
				f.served = true
			}
			f.mu.Unlock()
			if body == `[]` {
				time.Sleep(20 * time.Millisecond)
			}
			fmt.Fprintf(w, `{"ok":true,"result":%s}`, body)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			f.mu.Lock()
			f.sent = append(f.sent, map[string]string{"chat_id": r.Form.Get("chat_id"), "text": r.Form.Get("text")})
			f.mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeBotAPI) sentMessages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *TelegramAdapter {
	t.Helper()
	ts := httptest.NewServer(api.handler(t))
	t.Cleanup(ts.Close)
	adapter := NewTelegramAdapter(nil, "123:abc")
	adapter.endpoint = ts.URL + "/bot%s/%s"
	adapter.client = ts.Client()
	return adapter
}

func TestTelegramAdapter_Type(t *testing.T) {
	assert.Equal(t, Type, NewTelegramAdapter(nil, "x").Type())
}

func TestTelegramAdapter_ConnectDeliversTextMessages(t *testing.T) {
	api := &fakeBotAPI{updates: `[
		{"update_id":10,"message":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"from":{"id":7,"is_bot":false,"first_name":"Juan"},"text":"  quiero cotizar  "}},
		{"update_id":11,"message":{"message_id":2,"date":1700000001,"chat":{"id":42,"type":"private"},"from":{"id":7,"is_bot":false,"first_name":"Juan"}}}
	]`}
	adapter := newTestAdapter(t, api)

	got := make(chan channel.InboundMessage, 4)
	conn, err := adapter.Connect(context.Background(), func(_ context.Context, msg channel.InboundMessage) error {
		got <- msg
		return nil
	})
	require.NoError(t, err)
	assert.True(t, conn.Running())

	select {
	case msg := <-got:
		assert.Equal(t, Type, msg.Channel)
		assert.Equal(t, "7", msg.SenderID)
		assert.Equal(t, "42", msg.ChatID)
		assert.Equal(t, "quiero cotizar", msg.Text)
		assert.Equal(t, "telegram:42", msg.SessionKey())
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}

	require.NoError(t, conn.Stop(context.Background()))
	assert.False(t, conn.Running())
	select {
	case msg := <-got:
		t.Fatalf("message without text must be skipped, got %+v", msg)
	default:
	}
}

func TestTelegramAdapter_Send(t *testing.T) {
	api := &fakeBotAPI{}
	adapter := newTestAdapter(t, api)

	require.NoError(t, adapter.Send(context.Background(), channel.OutboundMessage{Target: "42", Text: "Hola!"}))
	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0]["chat_id"])
	assert.Equal(t, "Hola!", sent[0]["text"])
}

func TestTelegramAdapter_SendRejectsBadInput(t *testing.T) {
	adapter := newTestAdapter(t, &fakeBotAPI{})
	ctx := context.Background()
	assert.Error(t, adapter.Send(ctx, channel.OutboundMessage{Target: "", Text: "x"}))
	assert.Error(t, adapter.Send(ctx, channel.OutboundMessage{Target: "@channel", Text: "x"}))
	assert.Error(t, adapter.Send(ctx, channel.OutboundMessage{Target: "42", Text: "   "}))
}

func TestTelegramAdapter_MissingToken(t *testing.T) {
	adapter := NewTelegramAdapter(nil, "")
	_, err := adapter.Connect(context.Background(), func(context.Context, channel.InboundMessage) error { return nil })
	assert.Error(t, err)
}

func TestInboundFromUpdate_UsesCaption(t *testing.T) {
	msg, ok := inboundFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 5},
		Caption: "foto del matafuego",
	}})
	require.True(t, ok)
	assert.Equal(t, "foto del matafuego", msg.Text)
	assert.Equal(t, "", msg.SenderID)

	_, ok = inboundFromUpdate(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestTruncateTelegramText(t *testing.T) {
	short := "hola"
	assert.Equal(t, short, truncateTelegramText(short))

	exact := strings.Repeat("a", telegramMaxMessageLength)
	assert.Equal(t, exact, truncateTelegramText(exact))

	multi := strings.Repeat("ñ", telegramMaxMessageLength)
	got := truncateTelegramText(multi)
	assert.LessOrEqual(t, len(got), telegramMaxMessageLength)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, utf8.ValidString(got))
}

func TestSanitizeTelegramText(t *testing.T) {
	assert.Equal(t, "hola", sanitizeTelegramText("hola"))
	assert.Equal(t, "holamundo", sanitizeTelegramText("hola\xff\xfemundo"))
}
