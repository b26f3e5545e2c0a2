// Ephemeral chat session HTTP handlers.
//
// This file exposes REST endpoints for in-memory chat sessions, which are not
// persisted to the database and expire on idle TTL:
//   - POST   /chat/sessions                (start)
//   - GET    /chat/sessions/{id}           (fetch transcript)
//   - POST   /chat/sessions/{id}/messages  (send a message, get a reply)
//   - DELETE /chat/sessions/{id}           (end)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/http/middleware"
	"github.com/promptforge/go-prompt-backend/internal/services"
	"github.com/promptforge/go-prompt-backend/internal/session"
)

//
// DTOs
//

// SessionMessageRequest is the JSON payload for a session chat message.
type SessionMessageRequest struct {
	// Content is the user message. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"What rhymes with orange?"`
}

// SessionMessageResponse is the JSON envelope for a session chat turn. It
// returns both sides of the exchange, the same shape persisted conversations
// use.
type SessionMessageResponse struct {
	SessionID string `json:"session_id"`
	// UserMessage is the message appended to the transcript.
	UserMessage *domain.Message `json:"user_message"`
	// Message is the generated reply.
	Message *domain.Message `json:"message"`
	// Apologized reports that generation failed and a fixed apology was returned.
	Apologized bool `json:"apologized"`
}

//
// Handlers
//

// StartSession godoc
// @ID          startSession
// @Summary     Start an ephemeral chat session
// @Description Creates an in-memory session that expires on idle TTL and is
// @Description never written to the database.
// @Tags        Sessions
// @Produce     json
//
// @Success     201  {object}  session.Session
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions [post]
func (h *Handlers) StartSession(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	sess, err := h.sessSvc.Start(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, sess)
}

// GetSession godoc
// @ID          getSession
// @Summary     Fetch a session transcript
// @Tags        Sessions
// @Produce     json
//
// @Param       id  path  string  true  "Session ID (UUID)"  format(uuid)
//
// @Success     200  {object}  session.Session
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Session owned by another user"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found or expired"
// @Router      /chat/sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	sess, err := h.sessSvc.Get(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, session.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found or expired")
		case errors.Is(err, services.ErrSessionForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "session belongs to another user")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sess)
}

// PostSessionMessage godoc
// @ID          postSessionMessage
// @Summary     Send a message in an ephemeral session
// @Description Appends the message to the in-memory transcript and returns a
// @Description generated reply. Generation failures return a fixed apology
// @Description instead of an error.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Session ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SessionMessageRequest  true  "User message payload"
//
// @Success     200  {object}  handlers.SessionMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Session owned by another user"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found or expired"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions/{id}/messages [post]
func (h *Handlers) PostSessionMessage(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req SessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	turn, err := h.sessSvc.Post(c.Request.Context(), userID(c), sessionID, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, session.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found or expired")
		case errors.Is(err, services.ErrSessionForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "session belongs to another user")
		case errors.Is(err, services.ErrEmptyPrompt):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	middleware.ObserveChatTurn(turn.Apologized)

	ok(c, http.StatusOK, SessionMessageResponse{
		SessionID:   turn.SessionID,
		UserMessage: &turn.UserMessage,
		Message:     &turn.ReplyMessage,
		Apologized:  turn.Apologized,
	})
}

// EndSession godoc
// @ID          endSession
// @Summary     End an ephemeral session
// @Description Discards the in-memory transcript immediately.
// @Tags        Sessions
//
// @Param       id  path  string  true  "Session ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Session owned by another user"
// @Router      /chat/sessions/{id} [delete]
func (h *Handlers) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	if err := h.sessSvc.End(c.Request.Context(), userID(c), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "session belongs to another user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
