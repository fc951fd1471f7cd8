package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/argenfuego/eva/internal/channel"
	"github.com/argenfuego/eva/internal/logger"
)

// Type is the channel type served by this adapter.
const Type channel.ChannelType = "telegram"

const (
	telegramMaxMessageLength = 4096
	pollTimeoutSeconds       = 30
)

// TelegramAdapter implements channel.Receiver and channel.Sender over the Bot
// API using long polling.
type TelegramAdapter struct {
	logger   *slog.Logger
	token    string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramAdapter creates a TelegramAdapter for the bot identified by token.
func NewTelegramAdapter(log *slog.Logger, token string) *TelegramAdapter {
	if log == nil {
		log = slog.Default()
	}
	adapter := &TelegramAdapter{
		logger:   log.With(slog.String("adapter", "telegram")),
		token:    strings.TrimSpace(token),
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: (pollTimeoutSeconds + 10) * time.Second},
	}
	_ = tgbotapi.SetLogger(&slogBotLogger{log: adapter.logger})
	return adapter
}

func (a *TelegramAdapter) Type() channel.ChannelType {
	return Type
}

func (a *TelegramAdapter) getBot() (*tgbotapi.BotAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	if a.token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(a.token, a.endpoint, a.client)
	if err != nil {
		a.logger.Error("create bot failed", slog.Any("error", err))
		return nil, err
	}
	a.bot = bot
	return bot, nil
}

// Connect starts long polling and forwards every text message to handler.
func (a *TelegramAdapter) Connect(ctx context.Context, handler channel.InboundHandler) (channel.Connection, error) {
	bot, err := a.getBot()
	if err != nil {
		return nil, err
	}
	a.logger.Info("start", slog.String("bot", bot.Self.UserName))
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeoutSeconds
	updates := bot.GetUpdatesChan(updateConfig)
	connCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-connCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					a.logger.Info("updates channel closed")
					return
				}
				msg, ok := inboundFromUpdate(update)
				if !ok {
					continue
				}
				if err := handler(connCtx, msg); err != nil {
					a.logger.Error("handle inbound failed",
						slog.String(logger.UserIDKey, msg.SessionKey()),
						slog.Any("error", err))
				}
			}
		}
	}()

	stop := func(_ context.Context) error {
		a.logger.Info("stop")
		bot.StopReceivingUpdates()
		cancel()
		// Drain so the library's polling goroutine can exit and release the
		// getUpdates session before another connection reuses the token.
		for range updates {
		}
		return nil
	}
	return channel.NewConnection(Type, stop), nil
}

// Send delivers a plain-text reply to the chat id in msg.Target.
func (a *TelegramAdapter) Send(ctx context.Context, msg channel.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := strings.TrimSpace(msg.Target)
	if target == "" {
		return fmt.Errorf("telegram target is required")
	}
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram target must be a chat_id")
	}
	text := truncateTelegramText(sanitizeTelegramText(strings.TrimSpace(msg.Text)))
	if text == "" {
		return fmt.Errorf("message is required")
	}
	bot, err := a.getBot()
	if err != nil {
		return err
	}
	_, err = bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func inboundFromUpdate(update tgbotapi.Update) (channel.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return channel.InboundMessage{}, false
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		text = strings.TrimSpace(m.Caption)
	}
	if text == "" {
		return channel.InboundMessage{}, false
	}
	sender := ""
	if m.From != nil {
		sender = strconv.FormatInt(m.From.ID, 10)
	}
	return channel.InboundMessage{
		Channel:    Type,
		SenderID:   sender,
		ChatID:     strconv.FormatInt(m.Chat.ID, 10),
		Text:       text,
		ReceivedAt: time.Unix(int64(m.Date), 0).UTC(),
	}, true
}

// sanitizeTelegramText strips invalid UTF-8, which the Bot API rejects.
func sanitizeTelegramText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// truncateTelegramText truncates text to telegramMaxMessageLength on a valid
// UTF-8 rune boundary, appending "..." when truncation occurs.
func truncateTelegramText(text string) string {
	if len(text) <= telegramMaxMessageLength {
		return text
	}
	const suffix = "..."
	limit := telegramMaxMessageLength - len(suffix)
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + suffix
}

type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
