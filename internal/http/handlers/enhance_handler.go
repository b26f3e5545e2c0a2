// Prompt enhancement HTTP handler.
//
// This file exposes the core endpoint of the service:
//   - POST /enhance  (rewrite a prompt with an external model and persist it)
//
// The enhancement never fails on malformed model output: when the reply
// cannot be parsed as structured JSON, the sanitized raw text is stored with
// a degraded marker and the response carries "degraded": true.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/enhancer"
	"github.com/promptforge/go-prompt-backend/internal/http/middleware"
	"github.com/promptforge/go-prompt-backend/internal/services"
)

//
// DTOs
//

// EnhanceRequest is the JSON payload for enhancing a prompt.
type EnhanceRequest struct {
	// Prompt is the original text to enhance. It must be non-empty.
	Prompt string `json:"prompt" binding:"required,min=1" example:"write a blog post about coffee"`
	// PromptType classifies the prompt (Creative, Technical, Instructional, Casual).
	PromptType string `json:"prompt_type" binding:"required,min=1" example:"Creative"`
	// EnhancementFocus selects the rewrite style (Professional, Creative,
	// Conversational, Technical, LLM-Optimized).
	EnhancementFocus string `json:"enhancement_focus" binding:"required,min=1" example:"Professional"`
}

// EnhanceResponse is the JSON envelope for a completed enhancement.
type EnhanceResponse struct {
	// Prompt is the persisted prompt row, including the enhanced text.
	Prompt *domain.Prompt `json:"prompt"`
	// EnhancedPrompt duplicates the enhanced text for convenience.
	EnhancedPrompt string `json:"enhanced_prompt"`
	// Improvements lists the categorized notes the rewrite produced. When
	// degraded it holds the single synthetic "PROCESSED" entry.
	Improvements []domain.Improvement `json:"improvements"`
	// Degraded reports that the model reply lacked usable structure.
	Degraded bool `json:"degraded"`
}

// ValidationErrorResponse extends the error envelope with per-field errors.
type ValidationErrorResponse struct {
	ErrorResponse
	Errors []enhancer.FieldError `json:"errors"`
}

// failValidation writes a 400 response with field-attributed errors.
func failValidation(c *gin.Context, verrs enhancer.ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
		ErrorResponse: ErrorResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      ErrCodeValidation,
			Message:   verrs.Error(),
		},
		Errors: verrs,
	})
}

//
// Handlers
//

// EnhancePrompt godoc
// @ID          enhancePrompt
// @Summary     Enhance a prompt
// @Description Rewrites the prompt with an external model, stores the result,
// @Description and returns the enhanced text plus improvement notes.
// @Tags        Prompts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.EnhanceRequest  true  "Enhancement payload"
//
// @Success     200  {object}  handlers.EnhanceResponse
// @Failure     400  {object}  handlers.ValidationErrorResponse  "Invalid inputs"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream model failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /enhance [post]
func (h *Handlers) EnhancePrompt(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt, prompt_type and enhancement_focus required")
		return
	}

	prompt := sanitizeContent(req.Prompt)

	outcome, err := h.promptSvc.Enhance(c.Request.Context(), uid, prompt,
		domain.PromptType(req.PromptType), domain.EnhancementFocus(req.EnhancementFocus))
	if err != nil {
		var verrs enhancer.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			failValidation(c, verrs)
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt too long")
		case errors.Is(err, services.ErrUpstream):
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "enhancement provider unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	middleware.ObserveEnhancement(outcome.Degraded)

	ok(c, http.StatusOK, EnhanceResponse{
		Prompt:         outcome.Prompt,
		EnhancedPrompt: outcome.Result.EnhancedPrompt,
		Improvements:   outcome.Result.Improvements,
		Degraded:       outcome.Degraded,
	})
}
