// Package services – SessionChatService
//
// This file implements SessionChatService, the lightweight chat flow that
// keeps transcripts in a session store instead of the database. Sessions are
// short-lived and anonymous-friendly: no conversation row, no message rows,
// just an ID the client holds on to.
//
// Turns follow the same never-fail contract as TurnService: once the user
// message is in the transcript, generation failures produce the fixed
// apology rather than an error.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/session"
)

// SessionChatService runs chat turns against a session.Store.
type SessionChatService struct {
	// Store holds live transcripts. Required.
	Store session.Store
	// Generator produces assistant replies. Required.
	Generator ai.TextGenerator

	// HistoryWindow bounds the history slice sent to the model; values <= 0
	// fall back to enhancer.ContextWindowSession.
	HistoryWindow int

	// Optional guards
	MaxPromptRunes int
	MaxReplyRunes  int
}

// SessionTurn is the outcome of one session chat turn. It carries both sides
// of the exchange, mirroring the persisted-conversation turn result.
type SessionTurn struct {
	SessionID    string
	UserMessage  domain.Message
	ReplyMessage domain.Message
	// Apologized reports that generation failed and the fixed apology was
	// used in place of a real reply.
	Apologized bool
}

// Start creates and persists an empty session owned by userID.
func (s *SessionChatService) Start(ctx context.Context, userID string) (*session.Session, error) {
	sess := session.NewSession(userID)
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session transcript, mapping unknown IDs to
// ErrSessionNotFound and sessions held by other users to ErrSessionForbidden.
func (s *SessionChatService) Get(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	return s.lookup(ctx, userID, sessionID)
}

func (s *SessionChatService) lookup(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.OwnerID != "" && sess.OwnerID != userID {
		return nil, ErrSessionForbidden
	}
	return sess, nil
}

// Post validates content, appends it to the session transcript, generates a
// reply over the bounded window, appends that too, and saves the session.
func (s *SessionChatService) Post(ctx context.Context, userID, sessionID, content string) (*SessionTurn, error) {
	tr := otel.Tracer("services/SessionChatService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(content) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	sess, err := s.lookup(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	window := s.window()
	// History is everything before this turn.
	history := enhancer.LastN(sess.Messages, window)
	sess.Append(content, true)

	reply, apologized := s.generate(ctx, history, content, window)
	span.SetAttributes(attribute.Bool("turn.apologized", apologized))

	sess.Append(reply, false)
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}

	n := len(sess.Messages)
	return &SessionTurn{
		SessionID:    sess.ID,
		UserMessage:  sess.Messages[n-2],
		ReplyMessage: sess.Messages[n-1],
		Apologized:   apologized,
	}, nil
}

// End deletes the session after an ownership check. Unknown IDs are a no-op.
func (s *SessionChatService) End(ctx context.Context, userID, sessionID string) error {
	if _, err := s.lookup(ctx, userID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.Store.Delete(ctx, sessionID)
}

func (s *SessionChatService) generate(ctx context.Context, history []domain.Message, content string, window int) (string, bool) {
	prompt := enhancer.BuildTurnPrompt(history, content, window)
	raw, err := s.Generator.GenerateText(ctx, enhancer.ChatSystemInstruction, prompt)
	if err != nil {
		return ApologyReply, true
	}
	out := enhancer.SanitizeReply(raw)
	if out == "" {
		return ApologyReply, true
	}
	if s.MaxReplyRunes > 0 && utf8.RuneCountInString(out) > s.MaxReplyRunes {
		out = string([]rune(out)[:s.MaxReplyRunes])
	}
	return out, false
}

func (s *SessionChatService) window() int {
	if s.HistoryWindow > 0 {
		return s.HistoryWindow
	}
	return enhancer.ContextWindowSession
}
