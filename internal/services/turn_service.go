// Package services – TurnService
//
// This file implements TurnService, the application-level component that owns
// chat turns within persisted conversations. It validates the message,
// verifies conversation ownership, commits the user message, calls the
// configured text generator over a bounded history window, and appends the
// assistant reply.
//
// The turn never fails after the user message is committed: when generation
// errors out or produces nothing, a fixed apology is stored and returned in
// its place. A user message is never lost to a provider outage.
//
// Optional enhancement: it also auto-generates a conversation title from the
// first user message when the conversation still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/user identifiers and whether the apology path ran.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// default titles we consider placeholders eligible for auto-generation
	defaultTitleNew      = "New chat"
	defaultTitleUntitled = "Untitled"
)

// ApologyReply is stored and returned as the assistant message when reply
// generation fails. Its wording is fixed so clients can rely on it.
const ApologyReply = "I'm sorry — I couldn't generate a response just now. Please try again."

// TurnService coordinates message persistence and generated assistant replies.
type TurnService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Generator produces assistant replies. Required.
	Generator ai.TextGenerator

	// HistoryWindow bounds the history slice sent to the model; values <= 0
	// fall back to enhancer.ContextWindowConversation.
	HistoryWindow int

	// Optional guards
	MaxPromptRunes int
	MaxReplyRunes  int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
	// Apologized reports that generation failed and the fixed apology was
	// stored in place of a real reply.
	Apologized bool
}

// PostMessage validates content, verifies the conversation, commits the user
// message, generates a reply over the bounded history window, and appends it.
// It may auto-generate a conversation title from the first user message.
func (s *TurnService) PostMessage(ctx context.Context, userID, conversationID, content string) (*TurnResult, error) {
	tr := otel.Tracer("services/TurnService")
	ctx, span := tr.Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate content
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(content) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	// Ensure the conversation exists and belongs to the user
	conv, err := repo.GetConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	// Snapshot the history window before the new turn is added.
	window := s.window()
	history, err := repo.LastMessages(s.DB.WithContext(ctx), conversationID, window)
	if err != nil {
		return nil, err
	}

	// Commit the user message first, in its own transaction. From here on,
	// the turn must not fail because of the model provider.
	userMsg, err := repo.CreateMessage(s.DB.WithContext(ctx), conversationID, content, true)
	if err != nil {
		return nil, err
	}

	reply, apologized := s.generateReply(ctx, history, content, window)
	span.SetAttributes(attribute.Bool("turn.apologized", apologized))

	// Persist assistant reply, bump conversation activity, and maybe update
	// the title, all in one transaction.
	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(tx, conversationID, reply, false)
		if err != nil {
			return err
		}
		assistantMsg = m

		if err := repo.TouchConversation(tx, conversationID); err != nil {
			return err
		}

		// Auto-title if placeholder
		if shouldAutoTitle(conv.Title) {
			if gen := s.generateTitleFromPrompt(content); gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Conversation{}).Where("id = ?", conversationID).Update("title", gen).Error; uerr == nil {
					conv.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{UserMessage: userMsg, AssistantMessage: assistantMsg, Apologized: apologized}, nil
}

// ListPage returns paginated messages for a conversation the user owns.
func (s *TurnService) ListPage(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/TurnService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure the conversation exists and belongs to the user
	if _, err := repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), conversationID, offset, pageSize)
	return items, total, err
}

// generateReply runs the model call and maps every failure mode to the fixed
// apology. A non-empty reply is sanitized before being returned.
func (s *TurnService) generateReply(ctx context.Context, history []domain.Message, content string, window int) (reply string, apologized bool) {
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

func (s *TurnService) window() int {
	if s.HistoryWindow > 0 {
		return s.HistoryWindow
	}
	return enhancer.ContextWindowConversation
}

// shouldAutoTitle reports whether the current title is a placeholder.
func shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the first message.
func (s *TurnService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *TurnService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// titleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *TurnService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "gpt4").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
