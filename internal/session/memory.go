package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a mutex-guarded map.
//
// Sessions idle for longer than the TTL are dropped opportunistically during
// Save and lazily during Get. When the store is at capacity, saving a new
// session evicts the oldest-idle one so memory stays bounded.
//
// This store is process-local; use RedisStore when running more than one
// replica.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl time.Duration
	max int

	now func() time.Time // overridable in tests
}

// NewMemoryStore constructs a MemoryStore.
//
//   - ttl: idle lifetime of a session; values <= 0 are coerced to 30 minutes.
//   - max: cap on live sessions; values <= 0 are coerced to 1000.
func NewMemoryStore(ttl time.Duration, max int) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if max <= 0 {
		max = 1000
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
	}
}

// Get returns a deep copy of the session so callers can mutate it freely
// before Save. Expired entries are removed and reported as ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if now.Sub(s.LastSeen) >= m.ttl {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

// Save upserts a copy of s and stamps its idle timer.
//
// Expired entries are swept BEFORE the capacity check so a full store of
// dead sessions never forces a live eviction.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, old := range m.sessions {
		if now.Sub(old.LastSeen) >= m.ttl {
			delete(m.sessions, id)
		}
	}

	if _, exists := m.sessions[s.ID]; !exists && len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}

	cp := copySession(s)
	cp.LastSeen = now
	m.sessions[s.ID] = cp
	s.LastSeen = now
	return nil
}

// Delete removes the session if present. Deleting an unknown ID is a no-op.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of live (possibly expired but unswept) sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if oldestID == "" || s.LastSeen.Before(oldest) {
			oldestID = id
			oldest = s.LastSeen
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}

// copySession deep-copies via JSON; transcripts are small and this keeps the
// copy semantics identical to the Redis-backed store.
func copySession(s *Session) *Session {
	raw, err := json.Marshal(s)
	if err != nil {
		cp := *s
		return &cp
	}
	var cp Session
	if err := json.Unmarshal(raw, &cp); err != nil {
		c := *s
		return &c
	}
	return &cp
}
