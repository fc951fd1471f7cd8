package session

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

const defaultShards = 32

type shard struct {
	mu    sync.RWMutex
	items map[string]Session
}

// MemoryStore keeps sessions in sharded maps. Reads return copies, so callers
// never alias stored state.
type MemoryStore struct {
	shards []*shard
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore builds a store whose sessions expire after ttl of inactivity.
// A non-positive ttl disables lazy expiry (Evict still works).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		shards: make([]*shard, defaultShards),
		ttl:    ttl,
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: map[string]Session{}}
	}
	return s
}

func (m *MemoryStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

func (m *MemoryStore) expired(s Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.LastActiveAt) > m.ttl
}

// live returns the session for userID, dropping it first when it has expired.
// Caller holds the shard write lock.
func (m *MemoryStore) live(sh *shard, userID string, now time.Time) (Session, bool) {
	s, ok := sh.items[userID]
	if !ok {
		return Session{}, false
	}
	if m.expired(s, now) {
		delete(sh.items, userID)
		return Session{}, false
	}
	return s, true
}

func (m *MemoryStore) IsFirstInteraction(_ context.Context, userID string) (bool, error) {
	now := m.now()
	sh := m.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := m.live(sh, userID, now)
	if !ok {
		s = Session{UserID: userID}
	}
	first := !s.FirstInteractionSeen
	s.FirstInteractionSeen = true
	s.LastActiveAt = now
	sh.items[userID] = s
	return first, nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	now := m.now()
	sh := m.shardFor(userID)
	sh.mu.RLock()
	s, ok := sh.items[userID]
	sh.mu.RUnlock()
	if !ok || m.expired(s, now) {
		return Session{}, ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) Save(_ context.Context, in Session) error {
	now := m.now()
	sh := m.shardFor(in.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := m.live(sh, in.UserID, now)
	next := cloneSession(in)
	next.Dispatched = ok && current.Dispatched
	next.FirstInteractionSeen = in.FirstInteractionSeen || (ok && current.FirstInteractionSeen)
	next.LastActiveAt = now
	sh.items[in.UserID] = next
	return nil
}

func (m *MemoryStore) ClaimDispatch(_ context.Context, userID string) (bool, error) {
	now := m.now()
	sh := m.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := m.live(sh, userID, now)
	if !ok {
		s = Session{UserID: userID, FirstInteractionSeen: true}
	}
	if s.Dispatched {
		return false, nil
	}
	s.Dispatched = true
	s.LastActiveAt = now
	sh.items[userID] = s
	return true, nil
}

func (m *MemoryStore) ReleaseDispatch(_ context.Context, userID string) error {
	sh := m.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.items[userID]; ok {
		s.Dispatched = false
		sh.items[userID] = s
	}
	return nil
}

func (m *MemoryStore) Evict(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, s := range sh.items {
			if s.LastActiveAt.Before(cutoff) {
				delete(sh.items, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	sh := m.shardFor(userID)
	sh.mu.Lock()
	delete(sh.items, userID)
	sh.mu.Unlock()
	return nil
}

// List returns live sessions ordered by most recent activity.
func (m *MemoryStore) List(_ context.Context) ([]Session, error) {
	now := m.now()
	out := make([]Session, 0)
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, s := range sh.items {
			if !m.expired(s, now) {
				out = append(out, cloneSession(s))
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.After(out[j].LastActiveAt) })
	return out, nil
}
