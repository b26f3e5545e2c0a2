// Package services – PromptService
//
// This file implements PromptService, the application-level component that
// owns prompt enhancement and the library of saved results. It validates
// inputs, calls the configured text generator, parses the reply with graceful
// degradation, and persists the outcome as a Prompt row owned by the caller.
//
// Observability: public methods are OpenTelemetry-instrumented; the Enhance
// span records the categorical parameters and whether the reply degraded.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/repo"
	"github.com/promptforge/go-prompt-backend/internal/search"
)

// PromptRepo defines the repository contract required by PromptService.
type PromptRepo interface {
	CreatePrompt(ctx context.Context, db *gorm.DB, userID, original, enhanced, promptType, focus string, improvements datatypes.JSON) (*domain.Prompt, error)
	ListPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) ([]domain.Prompt, error)
	CountPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) (int64, error)
	ListPromptsPage(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool, offset, limit int) ([]domain.Prompt, error)
	GetPrompt(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Prompt, error)
	SetFavorite(ctx context.Context, db *gorm.DB, id, userID string, favorite bool) (*domain.Prompt, error)
	DeletePrompt(ctx context.Context, db *gorm.DB, id, userID string) error
}

// PromptService coordinates enhancement calls and the saved-prompt library.
type PromptService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the prompt repository used by this service.
	Repo PromptRepo
	// Generator produces the enhanced text. Required.
	Generator ai.TextGenerator

	// MaxPromptRunes caps the original prompt length; values <= 0 disable the check.
	MaxPromptRunes int
}

// EnhanceOutcome is the result of one enhancement: the persisted prompt row
// plus whether the model reply degraded to the fallback form.
type EnhanceOutcome struct {
	Prompt   *domain.Prompt
	Result   enhancer.EnhancementResult
	Degraded bool
}

// Enhance validates the inputs, runs the generation call, parses the reply
// (never failing on malformed model output), and persists the outcome.
//
// Error semantics:
//   - enhancer.ValidationErrors for invalid inputs (field-attributed)
//   - ErrTooLong when the prompt exceeds the configured limit
//   - ErrUpstream (wrapped) when the generation call itself fails
func (s *PromptService) Enhance(ctx context.Context, userID, original string, promptType domain.PromptType, focus domain.EnhancementFocus) (*EnhanceOutcome, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Enhance",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("prompt.type", string(promptType)),
			attribute.String("prompt.focus", string(focus)),
		),
	)
	defer span.End()

	if errs := enhancer.Validate(original, promptType, focus); len(errs) > 0 {
		return nil, errs
	}
	original = strings.TrimSpace(original)
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(original) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	raw, err := s.Generator.GenerateText(ctx, enhancer.SystemInstruction, enhancer.BuildInstruction(original, promptType, focus))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	result := enhancer.ParseModelReply(raw)
	span.SetAttributes(attribute.Bool("enhance.degraded", result.Degraded))

	improvements, err := json.Marshal(result.Improvements)
	if err != nil {
		return nil, err
	}

	p, err := s.Repo.CreatePrompt(ctx, s.DB, userID, original, result.EnhancedPrompt,
		string(promptType), string(focus), datatypes.JSON(improvements))
	if err != nil {
		return nil, err
	}
	return &EnhanceOutcome{Prompt: p, Result: result, Degraded: result.Degraded}, nil
}

// Save persists a prompt the caller already has in hand, without running an
// enhancement call. Enhanced text defaults to the original when absent. The
// same input validation as Enhance applies.
func (s *PromptService) Save(ctx context.Context, userID, original, enhanced string, promptType domain.PromptType, focus domain.EnhancementFocus, improvements []domain.Improvement) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("prompt.type", string(promptType)),
		),
	)
	defer span.End()

	if errs := enhancer.Validate(original, promptType, focus); len(errs) > 0 {
		return nil, errs
	}
	original = strings.TrimSpace(original)
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(original) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		enhanced = original
	}
	if improvements == nil {
		improvements = []domain.Improvement{}
	}

	raw, err := json.Marshal(improvements)
	if err != nil {
		return nil, err
	}
	return s.Repo.CreatePrompt(ctx, s.DB, userID, original, enhanced,
		string(promptType), string(focus), datatypes.JSON(raw))
}

// List returns the user's saved prompts, newest first. favoritesOnly narrows
// the result to favorited rows.
func (s *PromptService) List(ctx context.Context, userID string, favoritesOnly bool) ([]domain.Prompt, error) {
	return s.Repo.ListPrompts(ctx, s.DB, userID, favoritesOnly)
}

// ListPage returns a page of saved prompts plus the total count. It applies
// defaults for invalid page/pageSize.
func (s *PromptService) ListPage(ctx context.Context, userID string, favoritesOnly bool, page, pageSize int) ([]domain.Prompt, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountPrompts(ctx, s.DB, userID, favoritesOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Prompt{}, 0, nil
	}

	items, err := s.Repo.ListPromptsPage(ctx, s.DB, userID, favoritesOnly, offset, pageSize)
	return items, total, err
}

// Search ranks the user's saved prompts against a keyword query and returns
// the best matches, favorites first filtering included. Matching covers the
// original and enhanced text of each prompt. An empty query returns no rows.
func (s *PromptService) Search(ctx context.Context, userID, query string, favoritesOnly bool, limit int) ([]domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return []domain.Prompt{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	all, err := s.Repo.ListPrompts(ctx, s.DB, userID, favoritesOnly)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return []domain.Prompt{}, nil
	}

	byID := make(map[string]domain.Prompt, len(all))
	docs := make([]search.Document, 0, len(all))
	for _, p := range all {
		byID[p.ID] = p
		docs = append(docs, search.Document{ID: p.ID, Text: p.OriginalPrompt + "\n" + p.EnhancedPrompt})
	}

	ranked := search.NewIndex(docs).TopK(query, limit)
	span.SetAttributes(attribute.Int("search.matches", len(ranked)))

	out := make([]domain.Prompt, 0, len(ranked))
	for _, r := range ranked {
		if p, ok := byID[r.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get fetches one saved prompt, enforcing ownership.
func (s *PromptService) Get(ctx context.Context, userID, promptID string) (*domain.Prompt, error) {
	p, err := s.Repo.GetPrompt(ctx, s.DB, promptID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return p, nil
}

// SetFavorite sets the favorite flag to the given value and returns the
// updated prompt. The operation is idempotent: repeating it with the same
// value changes nothing.
func (s *PromptService) SetFavorite(ctx context.Context, userID, promptID string, favorite bool) (*domain.Prompt, error) {
	p, err := s.Repo.SetFavorite(ctx, s.DB, promptID, userID, favorite)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes a saved prompt owned by the user.
func (s *PromptService) Delete(ctx context.Context, userID, promptID string) error {
	if err := s.Repo.DeletePrompt(ctx, s.DB, promptID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPromptNotFound
		}
		return err
	}
	return nil
}
