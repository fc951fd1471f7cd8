package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
)

// UserIDKey is the attribute key rewritten by PII masking.
const UserIDKey = "user_id"

// L is the process-wide logger set by Init.
var L = slog.Default()

// Init configures L with the given level ("debug", "info", "warn", "error") and
// format ("text" or "json"). User identifiers are hashed when piiMasking is set.
func Init(level, format string, piiMasking bool) {
	L = New(os.Stdout, level, format, piiMasking)
	slog.SetDefault(L)
}

// New builds a logger writing to w without touching the global default.
func New(w io.Writer, level, format string, piiMasking bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if piiMasking {
		opts.ReplaceAttr = maskUserID
	}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// HashUserID returns an irreversible short hash of a user identifier.
func HashUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "hash_anonymous"
	}
	sum := sha256.Sum256([]byte(userID))
	return "hash_" + hex.EncodeToString(sum[:])[:8]
}

func maskUserID(_ []string, a slog.Attr) slog.Attr {
	if a.Key != UserIDKey {
		return a
	}
	if strings.HasPrefix(a.Value.String(), "hash_") {
		return a
	}
	return slog.String(UserIDKey, HashUserID(a.Value.String()))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
