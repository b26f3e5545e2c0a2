package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/services"
)

func newConvRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", withUser("u1"))
	g.POST("/conversations", h.CreateConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id", h.GetConversation)
	g.PUT("/conversations/:id/title", h.UpdateConversationTitle)
	g.DELETE("/conversations/:id", h.DeleteConversation)
	return r
}

func TestCreateConversation_BadJSON_Success_Internal(t *testing.T) {
	// Bad JSON -> 400
	r := newConvRouter(newStubHandlers())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString("{bad"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}

	// Success -> 201, title trimmed before the service sees it
	svc := stubConvSvc{create: func(_ context.Context, uid, title string) (*domain.Conversation, error) {
		if title != "Hello" {
			return nil, errors.New("title not trimmed: " + title)
		}
		return &domain.Conversation{ID: "c1", UserID: uid, Title: title}, nil
	}}
	r = newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, svc, stubMsgSvc{}, stubSessSvc{}))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"title":"   Hello  "}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.UserID != "u1" || out.Title != "Hello" {
		t.Fatalf("unexpected conversation: %#v", out)
	}

	// Internal error -> 500
	errSvc := stubConvSvc{create: func(context.Context, string, string) (*domain.Conversation, error) {
		return nil, errors.New("boom")
	}}
	r = newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, errSvc, stubMsgSvc{}, stubSessSvc{}))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString(`{"title":"X"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("internal -> %d", w.Code)
	}
}

func TestListConversations_SuccessPage(t *testing.T) {
	svc := stubConvSvc{listPage: func(_ context.Context, uid string, p, ps int) ([]domain.Conversation, int64, error) {
		return []domain.Conversation{{ID: "c1", UserID: uid}, {ID: "c2", UserID: uid}}, 5, nil
	}}
	r := newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, svc, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations?page=1&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var out ListConversationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Conversations) != 2 || out.Pagination.Total != 5 || out.Pagination.TotalPages != 3 || !out.Pagination.HasNext {
		t.Fatalf("unexpected page: %#v", out.Pagination)
	}
}

func TestGetConversation_InvalidID_NotFound(t *testing.T) {
	svc := stubConvSvc{get: func(context.Context, string, string) (*domain.Conversation, error) {
		return nil, services.ErrConversationNotFound
	}}
	r := newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, svc, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations/nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown -> %d", w.Code)
	}
}

func TestUpdateConversationTitle_Validation_NotFound_Success(t *testing.T) {
	id := uuid.NewString()
	svc := stubConvSvc{updateTitle: func(_ context.Context, _, cid, _ string) error {
		if cid != id {
			return services.ErrConversationNotFound
		}
		return nil
	}}
	r := newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, svc, stubMsgSvc{}, stubSessSvc{}))

	// Blank title -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/conversations/"+id+"/title", bytes.NewBufferString(`{"title":"   "}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank title -> %d", w.Code)
	}

	// Unknown conversation -> 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/conversations/"+uuid.NewString()+"/title", bytes.NewBufferString(`{"title":"New name"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown -> %d", w.Code)
	}

	// Success -> 204
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/conversations/"+id+"/title", bytes.NewBufferString(`{"title":"New name"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("rename -> %d", w.Code)
	}
}

func TestDeleteConversation_Success_And_NotFound(t *testing.T) {
	id := uuid.NewString()
	svc := stubConvSvc{del: func(_ context.Context, _, cid string) error {
		if cid != id {
			return services.ErrConversationNotFound
		}
		return nil
	}}
	r := newConvRouter(New(stubAuthSvc{}, stubPromptSvc{}, svc, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/conversations/"+id, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/conversations/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete unknown -> %d", w.Code)
	}
}
