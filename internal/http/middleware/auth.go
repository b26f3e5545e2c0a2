// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. RequireAuth verifies the
// Authorization header against an injected IdentityVerifier and stashes the
// resolved identity in the Gin context, where downstream middleware and
// handlers read it under the "userID" and "username" keys.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/go-prompt-backend/internal/auth"
)

// Context keys under which the authenticated identity is stored.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUsername = "username"
)

// UserID returns the authenticated user ID stored by RequireAuth.
// The second return value indicates presence.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireAuth returns a Gin middleware that rejects requests without a valid
// bearer token.
//
// Behavior:
//   - Missing or malformed Authorization header: 401 with a compact JSON body.
//   - Invalid, expired, or wrongly-issued token: 401.
//   - On success: stores the user ID and username in the context and proceeds.
func RequireAuth(verifier auth.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.TokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			unauthorized(c, "missing bearer token")
			return
		}
		id, err := verifier.Verify(token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, id.UserID)
		c.Set(ctxKeyUsername, id.Username)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
