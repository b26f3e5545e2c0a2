package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/services"
)

func newEnhanceRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/enhance", withUser("u1"), h.EnhancePrompt)
	return r
}

func enhanceBody(prompt string) *bytes.Buffer {
	b, _ := json.Marshal(EnhanceRequest{
		Prompt:           prompt,
		PromptType:       "Creative",
		EnhancementFocus: "Professional",
	})
	return bytes.NewBuffer(b)
}

func TestEnhancePrompt_Success(t *testing.T) {
	svc := stubPromptSvc{enhance: func(_ context.Context, uid, orig string, pt domain.PromptType, f domain.EnhancementFocus) (*services.EnhanceOutcome, error) {
		if uid != "u1" || orig != "write about coffee" {
			return nil, fmt.Errorf("unexpected args: %q %q", uid, orig)
		}
		if pt != domain.PromptTypeCreative || f != domain.FocusProfessional {
			return nil, fmt.Errorf("unexpected enums: %q %q", pt, f)
		}
		return &services.EnhanceOutcome{
			Prompt: &domain.Prompt{ID: "p1", UserID: uid, EnhancedPrompt: "Better coffee prose"},
			Result: enhancer.EnhancementResult{
				EnhancedPrompt: "Better coffee prose",
				Improvements:   []domain.Improvement{{Category: "Tone", Detail: "more engaging"}},
			},
		}, nil
	}}
	h := New(stubAuthSvc{}, svc, stubConvSvc{}, stubMsgSvc{}, stubSessSvc{})
	r := newEnhanceRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enhance", enhanceBody("write about coffee"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("enhance -> %d body=%s", w.Code, w.Body.String())
	}
	var out EnhanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.EnhancedPrompt != "Better coffee prose" || out.Degraded {
		t.Fatalf("unexpected response: %#v", out)
	}
	if len(out.Improvements) != 1 || out.Improvements[0].Category != "Tone" {
		t.Fatalf("unexpected improvements: %#v", out.Improvements)
	}
}

func TestEnhancePrompt_DegradedPassthrough(t *testing.T) {
	svc := stubPromptSvc{enhance: func(_ context.Context, uid, _ string, _ domain.PromptType, _ domain.EnhancementFocus) (*services.EnhanceOutcome, error) {
		return &services.EnhanceOutcome{
			Prompt:   &domain.Prompt{ID: "p2", UserID: uid},
			Result:   enhancer.EnhancementResult{EnhancedPrompt: "raw text", Improvements: []domain.Improvement{{Category: enhancer.DegradedCategory}}},
			Degraded: true,
		}, nil
	}}
	r := newEnhanceRouter(New(stubAuthSvc{}, svc, stubConvSvc{}, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enhance", enhanceBody("anything"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("degraded enhance -> %d", w.Code)
	}
	var out EnhanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !out.Degraded || out.Improvements[0].Category != enhancer.DegradedCategory {
		t.Fatalf("expected degraded marker, got %#v", out)
	}
}

func TestEnhancePrompt_ValidationErrors(t *testing.T) {
	svc := stubPromptSvc{enhance: func(context.Context, string, string, domain.PromptType, domain.EnhancementFocus) (*services.EnhanceOutcome, error) {
		return nil, enhancer.ValidationErrors{
			{Field: "promptType", Message: "unknown prompt type"},
		}
	}}
	r := newEnhanceRouter(New(stubAuthSvc{}, svc, stubConvSvc{}, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enhance", enhanceBody("prompt"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("validation -> %d", w.Code)
	}
	var out ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Code != ErrCodeValidation {
		t.Fatalf("code = %q", out.Code)
	}
	if len(out.Errors) != 1 || out.Errors[0].Field != "promptType" {
		t.Fatalf("unexpected field errors: %#v", out.Errors)
	}
}

func TestEnhancePrompt_UpstreamFailure(t *testing.T) {
	svc := stubPromptSvc{enhance: func(context.Context, string, string, domain.PromptType, domain.EnhancementFocus) (*services.EnhanceOutcome, error) {
		return nil, fmt.Errorf("%w: connect refused", services.ErrUpstream)
	}}
	r := newEnhanceRouter(New(stubAuthSvc{}, svc, stubConvSvc{}, stubMsgSvc{}, stubSessSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enhance", enhanceBody("prompt"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("upstream -> %d, want 502", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != ErrCodeUpstream {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestEnhancePrompt_BadJSON_And_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStubHandlers()

	r := newEnhanceRouter(h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enhance", bytes.NewBufferString("{bad"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}

	// Route wired without auth middleware → 401
	r2 := gin.New()
	r2.POST("/enhance", h.EnhancePrompt)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/enhance", enhanceBody("prompt"))
	r2.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no auth -> %d, want 401", w.Code)
	}
}
