// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Prompt
// model: saved enhancement results with a favorites flag.
//
// All functions are context-aware and accept a *gorm.DB handle. Listing is
// always newest-first; the favoritesOnly variants narrow the scope without
// changing ordering.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// CreatePrompt inserts a new Prompt row owned by userID. improvements must be
// valid JSON (a serialized []domain.Improvement); the caller is responsible
// for producing it, degraded or not.
func CreatePrompt(ctx context.Context, db *gorm.DB, userID, original, enhanced, promptType, focus string, improvements datatypes.JSON) (*domain.Prompt, error) {
	p := &domain.Prompt{
		ID:               uuid.NewString(),
		UserID:           userID,
		OriginalPrompt:   original,
		EnhancedPrompt:   enhanced,
		PromptType:       promptType,
		EnhancementFocus: focus,
		Improvements:     improvements,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPrompts returns the user's prompts ordered by creation time descending.
// When favoritesOnly is true, only favorited prompts are returned.
func ListPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) ([]domain.Prompt, error) {
	var out []domain.Prompt
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

// CountPrompts returns the total number of prompts in scope for pagination
// metadata.
func CountPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Prompt{}).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListPromptsPage returns a paginated slice ordered by creation time
// descending. The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListPromptsPage(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool, offset, limit int) ([]domain.Prompt, error) {
	var out []domain.Prompt
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetPrompt fetches a single prompt by ID and owner, or ErrNotFound.
func GetPrompt(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Prompt, error) {
	var p domain.Prompt
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetFavorite sets the is_favorite flag of a prompt owned by userID to the
// given value and returns the updated row. Setting the current value again is
// a no-op, so retries are safe. Returns ErrNotFound when the prompt does not
// exist or belongs to someone else.
func SetFavorite(ctx context.Context, db *gorm.DB, id, userID string, favorite bool) (*domain.Prompt, error) {
	p, err := GetPrompt(ctx, db, id, userID)
	if err != nil {
		return nil, err
	}
	if p.IsFavorite == favorite {
		return p, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	p.IsFavorite = favorite
	return p, nil
}

// DeletePrompt removes a prompt owned by userID. Returns ErrNotFound when
// nothing was deleted.
func DeletePrompt(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Prompt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
