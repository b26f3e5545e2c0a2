package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

type fakeConversationRepo struct {
	createdTitle string
	createErr    error

	listItems []domain.Conversation
	listErr   error

	getConv *domain.Conversation
	getErr  error

	updatedTitle string
	updateErr    error

	deleteErr error

	countTotal int64
	countErr   error
}

func (r *fakeConversationRepo) CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.createdTitle = title
	return &domain.Conversation{ID: "c1", UserID: userID, Title: title}, nil
}

func (r *fakeConversationRepo) ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return r.listItems, r.listErr
}

func (r *fakeConversationRepo) GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	return r.getConv, r.getErr
}

func (r *fakeConversationRepo) UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updatedTitle = title
	return nil
}

func (r *fakeConversationRepo) DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	return r.deleteErr
}

func (r *fakeConversationRepo) CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return r.countTotal, r.countErr
}

func (r *fakeConversationRepo) ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	return r.listItems, r.listErr
}

func TestConversationCreate_TitleNormalization(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"blank falls back":    {in: "   ", want: "New chat"},
		"collapse whitespace": {in: "  my   plans \n", want: "my plans"},
		"clip long":           {in: strings.Repeat("a", 100), want: strings.Repeat("a", 60)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := &fakeConversationRepo{}
			s := NewConversationService(nil, r)
			if _, err := s.Create(context.Background(), "u1", tc.in); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if r.createdTitle != tc.want {
				t.Fatalf("title = %q, want %q", r.createdTitle, tc.want)
			}
		})
	}
}

func TestConversationUpdateTitle(t *testing.T) {
	r := &fakeConversationRepo{getConv: &domain.Conversation{ID: "c1", UserID: "u1"}}
	s := NewConversationService(nil, r)

	if err := s.UpdateTitle(context.Background(), "u1", "c1", "  new   name "); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if r.updatedTitle != "new name" {
		t.Fatalf("title = %q", r.updatedTitle)
	}

	// Blank title falls back to Untitled.
	if err := s.UpdateTitle(context.Background(), "u1", "c1", ""); err != nil {
		t.Fatalf("UpdateTitle blank: %v", err)
	}
	if r.updatedTitle != "Untitled" {
		t.Fatalf("title = %q", r.updatedTitle)
	}

	r2 := &fakeConversationRepo{getErr: gorm.ErrRecordNotFound}
	s2 := NewConversationService(nil, r2)
	if err := s2.UpdateTitle(context.Background(), "u1", "missing", "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
}

func TestConversationDelete(t *testing.T) {
	s := NewConversationService(nil, &fakeConversationRepo{})
	if err := s.Delete(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	s2 := NewConversationService(nil, &fakeConversationRepo{deleteErr: gorm.ErrRecordNotFound})
	if err := s2.Delete(context.Background(), "u1", "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
}

func TestConversationGet_NotFoundMapping(t *testing.T) {
	s := NewConversationService(nil, &fakeConversationRepo{getErr: gorm.ErrRecordNotFound})
	if _, err := s.Get(context.Background(), "u1", "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
}

func TestConversationListPage(t *testing.T) {
	sentinel := errors.New("count failed")
	s := NewConversationService(nil, &fakeConversationRepo{countErr: sentinel})
	if _, _, err := s.ListPage(context.Background(), "u1", 1, 10); !errors.Is(err, sentinel) {
		t.Fatalf("count error not propagated: %v", err)
	}

	s2 := NewConversationService(nil, &fakeConversationRepo{countTotal: 0})
	items, total, err := s2.ListPage(context.Background(), "u1", 0, -1)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty page: %v %d %v", items, total, err)
	}

	s3 := NewConversationService(nil, &fakeConversationRepo{
		countTotal: 2,
		listItems:  []domain.Conversation{{ID: "c2"}, {ID: "c1"}},
	})
	items, total, err = s3.ListPage(context.Background(), "u1", 1, 10)
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("page: %v %d %v", items, total, err)
	}
}
