package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

var testImprovements = datatypes.JSON([]byte(`[{"category":"CLARITY","detail":"tightened"}]`))

func seedPrompt(t *testing.T, db *gorm.DB, id, userID string, favorite bool, createdAt time.Time) {
	t.Helper()
	p := domain.Prompt{
		ID:               id,
		UserID:           userID,
		OriginalPrompt:   "orig",
		EnhancedPrompt:   "enh",
		PromptType:       string(domain.PromptTypeCreative),
		EnhancementFocus: string(domain.FocusProfessional),
		Improvements:     testImprovements,
		IsFavorite:       favorite,
		CreatedAt:        createdAt,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCreatePrompt_Success(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Prompt{})
	ctx := context.Background()

	p, err := CreatePrompt(ctx, db, "u1", "make it pop", "Make the design more vibrant.",
		string(domain.PromptTypeCreative), string(domain.FocusCreative), testImprovements)
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if p.ID == "" || p.UserID != "u1" || p.IsFavorite {
		t.Fatalf("unexpected Prompt fields: %+v", p)
	}

	var got domain.Prompt
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load created prompt: %v", err)
	}
	if got.EnhancedPrompt != "Make the design more vibrant." {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestListPrompts_OrderAndFavoritesFilter(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Prompt{})
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seedPrompt(t, db, "p1", "u1", false, t1)
	seedPrompt(t, db, "p2", "u1", true, t1.Add(time.Hour))
	seedPrompt(t, db, "p3", "u1", true, t1.Add(2*time.Hour))
	seedPrompt(t, db, "px", "u2", true, t1.Add(time.Hour))

	all, err := ListPrompts(ctx, db, "u1", false)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(all) != 3 || all[0].ID != "p3" || all[1].ID != "p2" || all[2].ID != "p1" {
		t.Fatalf("unexpected order: %#v", all)
	}

	favs, err := ListPrompts(ctx, db, "u1", true)
	if err != nil {
		t.Fatalf("ListPrompts favorites: %v", err)
	}
	if len(favs) != 2 || favs[0].ID != "p3" || favs[1].ID != "p2" {
		t.Fatalf("unexpected favorites: %#v", favs)
	}

	total, err := CountPrompts(ctx, db, "u1", true)
	if err != nil || total != 2 {
		t.Fatalf("CountPrompts favorites: %d, %v", total, err)
	}
}

func TestListPromptsPage(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Prompt{})
	ctx := context.Background()

	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		seedPrompt(t, db, string(rune('a'+i-1)), "u1", false, base.Add(time.Duration(i)*time.Second))
	}

	// Offset 1, limit 2 => 2nd and 3rd newest => IDs 'd','c'
	page, err := ListPromptsPage(ctx, db, "u1", false, 1, 2)
	if err != nil {
		t.Fatalf("ListPromptsPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "d" || page[1].ID != "c" {
		t.Fatalf("unexpected page slice: %+v", page)
	}
}

func TestSetFavorite_AbsoluteAndEnforcesOwnership(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Prompt{})
	ctx := context.Background()

	seedPrompt(t, db, "p1", "u1", false, time.Now().UTC())

	p, err := SetFavorite(ctx, db, "p1", "u1", true)
	if err != nil || !p.IsFavorite {
		t.Fatalf("set true: %+v %v", p, err)
	}
	// Setting the same value again is a no-op, not a flip.
	p, err = SetFavorite(ctx, db, "p1", "u1", true)
	if err != nil || !p.IsFavorite {
		t.Fatalf("retry set true: %+v %v", p, err)
	}
	got, err := GetPrompt(ctx, db, "p1", "u1")
	if err != nil || !got.IsFavorite {
		t.Fatalf("reload after retry: %+v %v", got, err)
	}

	p, err = SetFavorite(ctx, db, "p1", "u1", false)
	if err != nil || p.IsFavorite {
		t.Fatalf("set false: %+v %v", p, err)
	}

	if _, err := SetFavorite(ctx, db, "p1", "intruder", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for foreign user, got %v", err)
	}
	if _, err := SetFavorite(ctx, db, "missing", "u1", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for missing prompt, got %v", err)
	}
}

func TestDeletePrompt(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Prompt{})
	ctx := context.Background()

	seedPrompt(t, db, "p1", "u1", false, time.Now().UTC())

	if err := DeletePrompt(ctx, db, "p1", "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for foreign user, got %v", err)
	}
	if err := DeletePrompt(ctx, db, "p1", "u1"); err != nil {
		t.Fatalf("DeletePrompt: %v", err)
	}
	if _, err := GetPrompt(ctx, db, "p1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("prompt still present after delete: %v", err)
	}
}
