// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a fixed-window rate limiter for credential endpoints
// (login, and optionally register). Unlike the token-bucket limiter used for
// general traffic, a fixed window gives an exact "N attempts per window"
// guarantee, which is the contract we want against password guessing.
//
// Two backends:
//   - Redis (INCR + EXPIRE) for multi-replica deployments
//   - an in-process map fallback with opportunistic GC
//
// On Redis errors the limiter fails open: a broken cache must not lock every
// user out of login.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// loginWindow tracks attempts for one key within the current window.
type loginWindow struct {
	count   int
	resetAt time.Time
}

// LoginLimiter enforces a fixed-window attempt limit per client IP.
//
// This type is safe for concurrent use.
type LoginLimiter struct {
	limit  int
	window time.Duration

	// client, when non-nil, selects the Redis backend.
	client *redis.Client

	mu       sync.Mutex
	windows  map[string]*loginWindow
	cleanupN uint64
}

// NewLoginLimiter constructs a LoginLimiter.
//
//   - limit:  attempts allowed per window; values <= 0 are coerced to 5.
//   - window: window length; values <= 0 are coerced to 15 minutes.
//   - client: optional Redis client; nil selects the in-process backend.
func NewLoginLimiter(limit int, window time.Duration, client *redis.Client) *LoginLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{
		limit:   limit,
		window:  window,
		client:  client,
		windows: make(map[string]*loginWindow),
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit. retryAfter is the time remaining in the window when denied.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration) {
	if l.client != nil {
		return l.allowRedis(ctx, key)
	}
	return l.allowLocal(key)
}

func (l *LoginLimiter) allowRedis(ctx context.Context, key string) (bool, time.Duration) {
	rkey := "login:attempts:" + key
	n, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return true, 0 // fail open
	}
	if n == 1 {
		_ = l.client.Expire(ctx, rkey, l.window).Err()
	}
	if n > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, rkey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return false, ttl
	}
	return true, 0
}

func (l *LoginLimiter) allowLocal(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic cleanup of expired windows after a threshold of lookups.
	l.cleanupN++
	if l.cleanupN >= 5000 {
		for k, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, k)
			}
		}
		l.cleanupN = 0
	}

	w, okW := l.windows[key]
	if !okW || now.After(w.resetAt) {
		l.windows[key] = &loginWindow{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	w.count++
	if w.count > l.limit {
		return false, time.Until(w.resetAt)
	}
	return true, 0
}

// Handler returns a Gin middleware enforcing the limit per client IP.
//
// When denied, it responds 429 with a Retry-After header (seconds remaining
// in the window) and the standard JSON error envelope.
func (l *LoginLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := l.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if ok {
			c.Next()
			return
		}

		secs := int(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "too many login attempts, try again later",
		})
	}
}
