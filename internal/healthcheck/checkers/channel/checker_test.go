package channelchecker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argenfuego/eva/internal/channel"
	"github.com/argenfuego/eva/internal/healthcheck"
)

type fakeConnectionObserver struct {
	items []channel.ConnectionStatus
}

func (f *fakeConnectionObserver) Statuses() []channel.ConnectionStatus {
	return f.items
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckerListChecks(t *testing.T) {
	now := time.Now().UTC()
	checker := NewChecker(newTestLogger(), &fakeConnectionObserver{
		items: []channel.ConnectionStatus{
			{ChannelType: "telegram", Running: true, UpdatedAt: now},
			{ChannelType: "webhook", Running: false, LastError: "connect timeout", UpdatedAt: now},
		},
	})

	items := checker.ListChecks(context.Background())
	require.Len(t, items, 2)
	assert.Equal(t, "channel.connection.telegram", items[0].ID)
	assert.Equal(t, healthcheck.StatusOK, items[0].Status)
	assert.Equal(t, healthcheck.StatusError, items[1].Status)
	assert.Equal(t, "connect timeout", items[1].Detail)
	assert.Equal(t, "Channel webhook connection failed.", items[1].Summary)
}

func TestCheckerListChecks_NilObserver(t *testing.T) {
	items := NewChecker(newTestLogger(), nil).ListChecks(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, healthcheck.StatusWarn, items[0].Status)
}

func TestCheckerListChecks_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker := NewChecker(newTestLogger(), &fakeConnectionObserver{items: []channel.ConnectionStatus{{ChannelType: "telegram"}}})
	assert.Empty(t, checker.ListChecks(ctx))
}
