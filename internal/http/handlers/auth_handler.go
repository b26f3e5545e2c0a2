// Auth HTTP handlers.
//
// This file exposes the public account endpoints:
//   - POST /auth/register  (create an account, returns a bearer token)
//   - POST /auth/login     (authenticate by username or email)
//
// Both endpoints are unauthenticated and are expected to sit behind the
// login rate limiter.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	// Username is the unique display name (1-64 chars).
	Username string `json:"username" binding:"required,min=1" example:"alice"`
	// Email is the unique account email.
	Email string `json:"email" binding:"required,email" example:"alice@example.com"`
	// Password must satisfy the password policy (8+ chars, mixed classes).
	Password string `json:"password" binding:"required,min=1" example:"S3cure-pass"`
}

// LoginRequest is the JSON payload for authenticating. Clients send either
// email or identifier (username or email); email wins when both are present.
type LoginRequest struct {
	// Email is the account email address.
	Email string `json:"email" binding:"omitempty,min=1" example:"alice@example.com"`
	// Identifier is a username or an email address.
	Identifier string `json:"identifier" binding:"omitempty,min=1" example:"alice"`
	Password   string `json:"password" binding:"required,min=1" example:"S3cure-pass"`
}

// login returns the credential the client supplied, preferring email.
func (r LoginRequest) login() string {
	if v := strings.TrimSpace(r.Email); v != "" {
		return v
	}
	return strings.TrimSpace(r.Identifier)
}

// AuthResponse carries the authenticated user and a signed bearer token.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers a new user and returns a signed bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or weak password"
// @Failure     409  {object}  handlers.ErrorResponse  "Username or email taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password required")
		return
	}

	user, token, err := h.authSvc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		var policy *services.PasswordPolicyError
		switch {
		case errors.As(err, &policy):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(policy.Problems, "; "))
		case errors.Is(err, services.ErrUserExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "username or email already taken")
		case errors.Is(err, services.ErrEmptyPrompt):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// Login godoc
// @ID          login
// @Summary     Authenticate
// @Description Authenticates by username or email and returns a signed bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
//
// @Success     200  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email (or identifier) and password required")
		return
	}
	cred := req.login()
	if cred == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email (or identifier) and password required")
		return
	}

	user, token, err := h.authSvc.Login(c.Request.Context(), cred, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, AuthResponse{User: user, Token: token})
}
