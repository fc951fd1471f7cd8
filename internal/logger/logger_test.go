package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashUserID(t *testing.T) {
	h := HashUserID("whatsapp:+5491100000000")
	assert.Len(t, h, len("hash_")+8)
	assert.Equal(t, h, HashUserID("whatsapp:+5491100000000"))
	assert.NotEqual(t, h, HashUserID("whatsapp:+5491100000001"))
	assert.Equal(t, "hash_anonymous", HashUserID("  "))
}

func TestNew_MasksUserID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json", true)
	log.Info("message_processed", slog.String(UserIDKey, "5491100000000"), slog.Int("tokens", 12))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, HashUserID("5491100000000"), entry[UserIDKey])
	assert.EqualValues(t, 12, entry["tokens"])
}

func TestNew_MaskingDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json", false)
	log.Info("x", slog.String(UserIDKey, "plain"))
	assert.Contains(t, buf.String(), `"user_id":"plain"`)
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text", true)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
