package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/repo"
)

func newTurnTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("turn_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedConversation(t *testing.T, db *gorm.DB, id, userID, title string) {
	t.Helper()
	c := domain.Conversation{ID: id, UserID: userID, Title: title, CreatedAt: time.Now().UTC()}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
}

func TestPostMessage_SuccessPersistsBothMessages(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "Trip planning")

	s := &TurnService{DB: db, Generator: staticGenerator("**Sure!\n\n\nHere is a plan.", nil)}

	res, err := s.PostMessage(context.Background(), "u1", "c1", "  plan my trip  ")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if res.Apologized {
		t.Fatalf("successful turn flagged apologized")
	}
	if res.UserMessage.Content != "plan my trip" || !res.UserMessage.IsUser {
		t.Fatalf("user message wrong: %+v", res.UserMessage)
	}
	// Reply is sanitized: emphasis stripped, blank runs collapsed.
	if res.AssistantMessage.Content != "Sure!\n\nHere is a plan." {
		t.Fatalf("assistant message not sanitized: %q", res.AssistantMessage.Content)
	}

	msgs, err := repo.ListMessages(db, "c1", 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("persisted messages: %v %v", msgs, err)
	}
	if !msgs[0].IsUser || msgs[1].IsUser {
		t.Fatalf("message order/roles wrong: %+v", msgs)
	}
}

func TestPostMessage_GeneratorFailureStoresApology(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "Trip planning")

	s := &TurnService{DB: db, Generator: staticGenerator("", errors.New("provider down"))}

	res, err := s.PostMessage(context.Background(), "u1", "c1", "hello?")
	if err != nil {
		t.Fatalf("turn must not fail on provider outage: %v", err)
	}
	if !res.Apologized || res.AssistantMessage.Content != ApologyReply {
		t.Fatalf("apology not stored: %+v", res)
	}

	// Both the user message and the apology are persisted.
	msgs, _ := repo.ListMessages(db, "c1", 0)
	if len(msgs) != 2 || msgs[1].Content != ApologyReply {
		t.Fatalf("persisted turn wrong: %+v", msgs)
	}
}

func TestPostMessage_BlankReplyStoresApology(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	s := &TurnService{DB: db, Generator: staticGenerator("   \n\n  ", nil)}
	res, err := s.PostMessage(context.Background(), "u1", "c1", "hi")
	if err != nil || !res.Apologized {
		t.Fatalf("blank reply should apologize: %+v %v", res, err)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	s := &TurnService{DB: db, Generator: staticGenerator("ok", nil), MaxPromptRunes: 5}

	if _, err := s.PostMessage(context.Background(), "u1", "c1", "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("empty content: %v", err)
	}
	if _, err := s.PostMessage(context.Background(), "u1", "c1", "toolongmsg"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("long content: %v", err)
	}
	if _, err := s.PostMessage(context.Background(), "u1", "nope", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("missing conversation: %v", err)
	}
	if _, err := s.PostMessage(context.Background(), "intruder", "c1", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("foreign conversation: %v", err)
	}
}

func TestPostMessage_AutoTitlesFirstTurn(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "New chat")

	s := &TurnService{DB: db, Generator: staticGenerator("sure", nil)}
	if _, err := s.PostMessage(context.Background(), "u1", "c1", "plan a trip to the coast"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	var c domain.Conversation
	if err := db.First(&c, "id = ?", "c1").Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if c.Title == "New chat" || c.Title == "" {
		t.Fatalf("placeholder title not replaced: %q", c.Title)
	}
	if !strings.Contains(c.Title, "Trip") {
		t.Fatalf("title not derived from prompt: %q", c.Title)
	}

	// A real title is left alone on later turns.
	fixed := c.Title
	if _, err := s.PostMessage(context.Background(), "u1", "c1", "completely different topic now"); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if err := db.First(&c, "id = ?", "c1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c.Title != fixed {
		t.Fatalf("title changed on later turn: %q -> %q", fixed, c.Title)
	}
}

func TestPostMessage_HistoryWindowBounded(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		m := domain.Message{
			ID:             fmt.Sprintf("m%02d", i),
			ConversationID: "c1",
			Content:        fmt.Sprintf("msg %02d", i),
			IsUser:         i%2 == 0,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	var captured string
	gen := ai.GeneratorFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		captured = userPrompt
		return "ok", nil
	})
	s := &TurnService{DB: db, Generator: gen}

	if _, err := s.PostMessage(context.Background(), "u1", "c1", "latest question"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	// 10 history lines plus the new content line.
	lines := strings.Split(captured, "\n")
	if len(lines) != 11 {
		t.Fatalf("window not bounded: %d lines\n%s", len(lines), captured)
	}
	if !strings.Contains(lines[0], "msg 10") {
		t.Fatalf("window starts at wrong message: %q", lines[0])
	}
	if lines[10] != "User: latest question" {
		t.Fatalf("new content line wrong: %q", lines[10])
	}
}

func TestTurnListPage(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "t")

	s := &TurnService{DB: db, Generator: staticGenerator("ok", nil)}

	if _, _, err := s.ListPage(context.Background(), "u1", "missing", 1, 10); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("missing conversation: %v", err)
	}

	items, total, err := s.ListPage(context.Background(), "u1", "c1", 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty conversation: %v %d %v", items, total, err)
	}

	if _, err := s.PostMessage(context.Background(), "u1", "c1", "hi there"); err != nil {
		t.Fatalf("seed turn: %v", err)
	}
	items, total, err = s.ListPage(context.Background(), "u1", "c1", 1, 10)
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("after turn: %v %d %v", items, total, err)
	}
}

func TestPostMessage_StoreFailureIsNotNotFound(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "Coffee talk")

	s := &TurnService{DB: db, Generator: staticGenerator("ok", nil)}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	_ = sqlDB.Close()

	if _, err := s.PostMessage(context.Background(), "u1", "c1", "hi"); err == nil || errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("store failure must not read as a missing conversation: %v", err)
	}
	if _, _, err := s.ListPage(context.Background(), "u1", "c1", 1, 10); err == nil || errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("store failure on listing must not read as a missing conversation: %v", err)
	}
}

func TestPostMessage_BumpsConversationActivity(t *testing.T) {
	db := newTurnTestDB(t)
	seedConversation(t, db, "c1", "u1", "Coffee talk")

	stale := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Conversation{}).Where("id = ?", "c1").
		UpdateColumn("updated_at", stale).Error; err != nil {
		t.Fatalf("age conversation: %v", err)
	}

	s := &TurnService{DB: db, Generator: staticGenerator("ok", nil)}
	if _, err := s.PostMessage(context.Background(), "u1", "c1", "any news?"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	conv, err := repo.GetConversation(context.Background(), db, "c1", "u1")
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if !conv.UpdatedAt.After(stale.Add(30 * time.Minute)) {
		t.Fatalf("appending a message must refresh updated_at, got %v", conv.UpdatedAt)
	}
}
