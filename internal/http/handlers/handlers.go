// Handler wiring and shared HTTP plumbing.
//
// This file defines the service contracts consumed by the HTTP layer, the
// Handlers aggregate that binds them, and small helpers shared across
// endpoints (identity extraction, pagination clamping, input sanitization).
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/http/middleware"
	"github.com/promptforge/go-prompt-backend/internal/services"
	"github.com/promptforge/go-prompt-backend/internal/session"
	"github.com/promptforge/go-prompt-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService defines account registration and login operations.
type AuthService interface {
	// Register creates an account and returns the user plus a signed token.
	Register(ctx context.Context, username, email, password string) (*domain.User, string, error)
	// Login authenticates by username or email and returns the user plus a token.
	Login(ctx context.Context, identifier, password string) (*domain.User, string, error)
}

// PromptService defines prompt enhancement and library operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PromptService interface {
	// Enhance runs one enhancement and persists the outcome.
	Enhance(ctx context.Context, userID, original string, promptType domain.PromptType, focus domain.EnhancementFocus) (*services.EnhanceOutcome, error)
	// Save persists an already-enhanced prompt without calling the model.
	Save(ctx context.Context, userID, original, enhanced string, promptType domain.PromptType, focus domain.EnhancementFocus, improvements []domain.Improvement) (*domain.Prompt, error)
	// ListPage returns a page of the user's prompts and the total count.
	ListPage(ctx context.Context, userID string, favoritesOnly bool, page, pageSize int) ([]domain.Prompt, int64, error)
	// Search ranks the user's prompts against a keyword query.
	Search(ctx context.Context, userID, query string, favoritesOnly bool, limit int) ([]domain.Prompt, error)
	// Get returns one prompt owned by userID.
	Get(ctx context.Context, userID, promptID string) (*domain.Prompt, error)
	// SetFavorite sets the favorite flag and returns the updated prompt.
	SetFavorite(ctx context.Context, userID, promptID string, favorite bool) (*domain.Prompt, error)
	// Delete removes a prompt owned by userID.
	Delete(ctx context.Context, userID, promptID string) error
}

// ConversationService defines conversation lifecycle operations.
type ConversationService interface {
	// Create starts a new conversation for userID with an optional title.
	Create(ctx context.Context, userID, title string) (*domain.Conversation, error)
	// ListPage returns a page of conversations for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error)
	// Get returns one conversation owned by userID.
	Get(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	// UpdateTitle renames a conversation that belongs to userID.
	UpdateTitle(ctx context.Context, userID, conversationID, title string) error
	// Delete soft-deletes a conversation that belongs to userID.
	Delete(ctx context.Context, userID, conversationID string) error
}

// MessageService defines chat-turn operations within persisted conversations.
type MessageService interface {
	// PostMessage appends a user message and an assistant reply to a conversation.
	PostMessage(ctx context.Context, userID, conversationID, content string) (*services.TurnResult, error)
	// ListPage returns a page of messages within a conversation and the total count.
	ListPage(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
}

// SessionService defines operations on ephemeral in-memory chat sessions.
// All operations are scoped to the owning user.
type SessionService interface {
	// Start creates an empty session owned by userID.
	Start(ctx context.Context, userID string) (*session.Session, error)
	// Get returns a session by id.
	Get(ctx context.Context, userID, sessionID string) (*session.Session, error)
	// Post appends a user message and a generated reply to a session.
	Post(ctx context.Context, userID, sessionID, content string) (*services.SessionTurn, error)
	// End discards a session.
	End(ctx context.Context, userID, sessionID string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for auth, prompt enhancement,
// conversations, messages, and ephemeral sessions. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc   AuthService
	promptSvc PromptService
	convSvc   ConversationService
	msgSvc    MessageService
	sessSvc   SessionService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, promptSvc PromptService, convSvc ConversationService, msgSvc MessageService, sessSvc SessionService) *Handlers {
	return &Handlers{
		authSvc:   authSvc,
		promptSvc: promptSvc,
		convSvc:   convSvc,
		msgSvc:    msgSvc,
		sessSvc:   sessSvc,
	}
}

// userID extracts the authenticated user id from the Gin context (set by the
// auth middleware). Protected routes always have it; an empty string means
// the route was wired without RequireAuth, which handlers treat as a 401.
func userID(c *gin.Context) string {
	if s, ok := middleware.UserID(c); ok {
		return s
	}
	return ""
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
