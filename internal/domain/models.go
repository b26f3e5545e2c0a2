// Package domain defines the persistence models for users, prompts,
// conversations, and messages. These types are mapped with GORM and form
// the core data layer of the prompt-enhancer application.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents a registered account. Users own prompts and conversations;
// nothing in the core ever deletes a user row.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique identity attributes.
//   - Password: bcrypt hash of the local credential; empty when the account
//     was issued by an external identity provider.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(64);not null;uniqueIndex"`
	Email     string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex"`
	Password  string    `json:"-"        gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Prompt is a saved enhancement result owned by exactly one user. The
// Improvements column always holds valid JSON: a list of category/detail
// pairs, degraded to a single PROCESSED entry when the upstream model reply
// could not be parsed.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - OriginalPrompt / EnhancedPrompt: input text and model rewrite.
//   - PromptType: member of the closed PromptType enumeration.
//   - EnhancementFocus: member of the closed EnhancementFocus enumeration.
//   - Improvements: serialized []Improvement (JSON column).
//   - IsFavorite: owner-toggled flag, defaults to false.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Prompt struct {
	ID               string         `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string         `json:"user_id"           gorm:"type:char(36);not null;index:idx_user_prompts"`
	OriginalPrompt   string         `json:"original_prompt"   gorm:"type:text;not null"`
	EnhancedPrompt   string         `json:"enhanced_prompt"   gorm:"type:text;not null"`
	PromptType       string         `json:"prompt_type"       gorm:"type:varchar(32);not null"`
	EnhancementFocus string         `json:"enhancement_focus" gorm:"type:varchar(32);not null"`
	Improvements     datatypes.JSON `json:"improvements"      gorm:"not null"`
	IsFavorite       bool           `json:"is_favorite"       gorm:"not null;default:false"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"-"`

	// User is the owner. Prompts are cascade-deleted if the owner is removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }

// Improvement is one categorized note produced by the enhancement model,
// e.g. {"category":"CLARITY","detail":"tightened the opening sentence"}.
type Improvement struct {
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

// Conversation represents a persisted chat owned by a user. Each conversation
// has a title (auto-generated from the first message when left as a
// placeholder) and an ordered list of messages.
type Conversation struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_conversations"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single utterance within a conversation. The IsUser
// flag distinguishes user-authored messages from assistant replies. Messages
// are totally ordered by creation time within their conversation; that order
// is the only ordering guarantee the system provides.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	IsUser         bool           `json:"is_user"         gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"-"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent chat. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
