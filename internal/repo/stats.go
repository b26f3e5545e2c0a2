// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// maxUpdatedAt runs Count plus a newest-updated_at lookup against q. The
// Select/Order/Limit form avoids MAX() -> TEXT coercion in SQLite.
func maxUpdatedAt(q *gorm.DB) (count int64, newest *time.Time, err error) {
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// PromptsStats returns aggregate metadata for a user's saved prompts: row
// count and the greatest UpdatedAt. When the user has no prompts, count is 0
// and maxUpdatedAt is nil.
func PromptsStats(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) (int64, *time.Time, error) {
	q := db.WithContext(ctx).Model(&domain.Prompt{}).Where("user_id = ?", userID)
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	return maxUpdatedAt(q)
}

// ConversationsStats returns aggregate metadata for a user's conversations:
// row count and the greatest UpdatedAt among live rows.
func ConversationsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	q := db.WithContext(ctx).Model(&domain.Conversation{}).Where("user_id = ?", userID)
	return maxUpdatedAt(q)
}

// MessagesStats returns aggregate metadata for messages within a
// conversation: row count and the greatest UpdatedAt among those rows.
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (int64, *time.Time, error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)
	return maxUpdatedAt(q)
}
