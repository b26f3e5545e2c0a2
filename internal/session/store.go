// Package session provides pluggable storage for standalone chat sessions.
//
// A session is a short-lived, append-only transcript keyed by an opaque ID.
// It backs the lightweight chat endpoints that do not persist conversations
// to the database. Two implementations are provided:
//
//   - MemoryStore: process-local map with TTL expiry and a hard cap on the
//     number of live sessions (oldest-idle eviction).
//   - RedisStore: Redis-backed, JSON-encoded sessions with server-side TTL,
//     suitable for horizontally scaled deployments.
//
// Stores are injected into the HTTP layer; nothing in this package is a
// process-wide singleton.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// ErrNotFound is returned when a session ID is unknown or has expired.
var ErrNotFound = errors.New("session: not found")

// Session is one in-memory chat transcript. OwnerID ties the session to the
// user who started it; lookups by other users are rejected at the service
// layer.
type Session struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id,omitempty"`
	Messages  []domain.Message `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
}

// NewSession returns an empty session with a fresh UUID, owned by ownerID.
func NewSession(ownerID string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Append adds one turn to the transcript. Messages get an ID and timestamp so
// turn responses look the same as their database-backed counterparts.
func (s *Session) Append(content string, isUser bool) {
	s.Messages = append(s.Messages, domain.Message{
		ID:        uuid.NewString(),
		Content:   content,
		IsUser:    isUser,
		CreatedAt: time.Now().UTC(),
	})
}

// Store is the persistence contract for chat sessions.
//
// Get returns ErrNotFound for unknown or expired IDs. Save upserts the
// session and refreshes its idle timer.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
