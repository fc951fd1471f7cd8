// Package session tracks per-user conversation state: the first-interaction
// marker, the opaque lead checkpoint and the dispatch flag.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for sessions that are absent or expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is the idle time after which a session is forgotten.
const DefaultTTL = 2 * time.Hour

// Session is the state kept for one user id.
type Session struct {
	UserID               string          `json:"user_id"`
	FirstInteractionSeen bool            `json:"first_interaction_seen"`
	Dispatched           bool            `json:"dispatched"`
	State                json.RawMessage `json:"state,omitempty"`
	LastActiveAt         time.Time       `json:"last_active_at"`
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	// IsFirstInteraction creates the session when missing and reports true
	// exactly once per session lifetime.
	IsFirstInteraction(ctx context.Context, userID string) (bool, error)
	Get(ctx context.Context, userID string) (Session, error)
	// Save replaces the stored state and refreshes LastActiveAt. The
	// Dispatched flag is owned by ClaimDispatch and ReleaseDispatch.
	Save(ctx context.Context, s Session) error
	// ClaimDispatch atomically flips Dispatched from false to true and
	// reports whether this caller won.
	ClaimDispatch(ctx context.Context, userID string) (bool, error)
	ReleaseDispatch(ctx context.Context, userID string) error
	// Evict removes every session idle since before cutoff.
	Evict(ctx context.Context, cutoff time.Time) (int, error)
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]Session, error)
}

func cloneSession(s Session) Session {
	if s.State != nil {
		s.State = append(json.RawMessage(nil), s.State...)
	}
	return s
}
