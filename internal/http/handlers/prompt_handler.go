// Prompt library HTTP handlers.
//
// This file exposes REST endpoints for the saved-prompt library:
//   - POST   /prompts                (save a prompt without enhancing)
//   - GET    /prompts                (list, paginated, ETag support)
//   - GET    /prompts/{id}           (fetch one)
//   - PATCH  /prompts/{id}/favorite  (set favorite flag to an absolute value)
//   - DELETE /prompts/{id}           (remove)
//
// The favorites view is the same list endpoint filtered with ?favorites=true.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/repo"
	"github.com/promptforge/go-prompt-backend/internal/services"
)

//
// DTOs
//

// CreatePromptRequest is the JSON payload for saving a prompt directly,
// without running an enhancement call (importing an already-enhanced prompt).
type CreatePromptRequest struct {
	// OriginalPrompt is the source text. Required.
	OriginalPrompt string `json:"original_prompt" binding:"required,min=1"`
	// EnhancedPrompt is the rewritten text; defaults to the original when empty.
	EnhancedPrompt string `json:"enhanced_prompt"`
	// PromptType classifies the prompt (Creative, Technical, Instructional, Casual).
	PromptType string `json:"prompt_type" binding:"required,min=1"`
	// EnhancementFocus records the rewrite style the text was produced with.
	EnhancementFocus string `json:"enhancement_focus" binding:"required,min=1"`
	// Improvements optionally carries categorized notes to store alongside.
	Improvements []domain.Improvement `json:"improvements"`
}

// ListPromptsResponse wraps a page of prompts and pagination information.
type ListPromptsResponse struct {
	Prompts    []domain.Prompt `json:"prompts"`
	Pagination Pagination      `json:"pagination"`
}

// SetFavoriteRequest is the JSON payload for setting the favorite flag to an
// absolute value. Pointer binding distinguishes a missing field from false.
type SetFavoriteRequest struct {
	IsFavorite *bool `json:"is_favorite" binding:"required"`
}

//
// Handlers
//

// CreatePrompt godoc
// @ID          createPrompt
// @Summary     Save a prompt directly
// @Description Stores a prompt the caller already has (for example one
// @Description enhanced elsewhere) without calling the model.
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreatePromptRequest  true  "Prompt payload"
//
// @Success     201  {object} domain.Prompt
// @Failure     400  {object} handlers.ValidationErrorResponse "Invalid inputs"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /prompts [post]
func (h *Handlers) CreatePrompt(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "original_prompt, prompt_type and enhancement_focus required")
		return
	}

	p, err := h.promptSvc.Save(c.Request.Context(), uid,
		sanitizeContent(req.OriginalPrompt), sanitizeContent(req.EnhancedPrompt),
		domain.PromptType(req.PromptType), domain.EnhancementFocus(req.EnhancementFocus),
		req.Improvements)
	if err != nil {
		var verrs enhancer.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			failValidation(c, verrs)
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List saved prompts (paginated)
// @Description Returns a page of the user's prompts, newest first. Pass
// @Description favorites=true to restrict to favorites. Supports weak ETag
// @Description via If-None-Match and may return 304.
// @Tags        Prompts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       favorites      query   bool    false "Only favorites"             default(false)
// @Param       q              query   string  false "Keyword search; ranked results, no ETag"
// @Param       page           query   int     false "Page number"                minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"             minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPromptsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /prompts [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	favoritesOnly := strings.EqualFold(c.Query("favorites"), "true")
	page, pageSize := clampPagination(c)

	// Keyword search path: ranked results, no ETag (ordering is query-relative).
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		items, err := h.promptSvc.Search(ctx, uid, q, favoritesOnly, pageSize)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
		ok(c, http.StatusOK, ListPromptsResponse{
			Prompts:    items,
			Pagination: paginationFor(1, pageSize, int64(len(items))),
		})
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.promptSvc.(*services.PromptService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.PromptsStats(ctx, db, uid, favoritesOnly)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"prompts:%s:%v:%d:%d"`, uid, favoritesOnly, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.promptSvc.ListPage(ctx, uid, favoritesOnly, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListPromptsResponse{
		Prompts:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetPrompt godoc
// @ID          getPrompt
// @Summary     Fetch a saved prompt
// @Tags        Prompts
// @Produce     json
//
// @Param       id  path  string  true  "Prompt ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Prompt
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Prompt not found"
// @Router      /prompts/{id} [get]
func (h *Handlers) GetPrompt(c *gin.Context) {
	promptID := c.Param("id")
	if _, err := uuid.Parse(promptID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt id must be a UUID")
		return
	}

	p, err := h.promptSvc.Get(c.Request.Context(), userID(c), promptID)
	if err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// SetFavorite godoc
// @ID          setPromptFavorite
// @Summary     Set the favorite flag on a prompt
// @Description Sets is_favorite to the supplied value. Repeating the request
// @Description with the same value is a no-op, so retries are safe.
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Prompt ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SetFavoriteRequest  true  "Favorite flag"
//
// @Success     200  {object} domain.Prompt
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Prompt not found"
// @Router      /prompts/{id}/favorite [patch]
func (h *Handlers) SetFavorite(c *gin.Context) {
	promptID := c.Param("id")
	if _, err := uuid.Parse(promptID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt id must be a UUID")
		return
	}

	var req SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFavorite == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_favorite required")
		return
	}

	p, err := h.promptSvc.SetFavorite(c.Request.Context(), userID(c), promptID, *req.IsFavorite)
	if err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePrompt godoc
// @ID          deletePrompt
// @Summary     Delete a saved prompt
// @Tags        Prompts
//
// @Param       id  path  string  true  "Prompt ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Prompt not found"
// @Router      /prompts/{id} [delete]
func (h *Handlers) DeletePrompt(c *gin.Context) {
	promptID := c.Param("id")
	if _, err := uuid.Parse(promptID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt id must be a UUID")
		return
	}

	if err := h.promptSvc.Delete(c.Request.Context(), userID(c), promptID); err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
