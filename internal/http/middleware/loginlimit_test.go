package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestNewLoginLimiter_Defaults(t *testing.T) {
	l := NewLoginLimiter(0, 0, nil)
	if l.limit != 5 {
		t.Fatalf("limit = %d; want 5", l.limit)
	}
	if l.window != 15*time.Minute {
		t.Fatalf("window = %v; want 15m", l.window)
	}
}

func TestLoginLimiter_Local_AllowThenDeny(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "ip:1.2.3.4"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow(ctx, "ip:1.2.3.4")
	if ok {
		t.Fatalf("attempt 4 should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter = %v", retryAfter)
	}

	// A different key has its own window.
	if ok, _ := l.Allow(ctx, "ip:5.6.7.8"); !ok {
		t.Fatalf("independent key should be allowed")
	}
}

func TestLoginLimiter_Local_WindowReset(t *testing.T) {
	l := NewLoginLimiter(1, time.Minute, nil)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "ip:x"); !ok {
		t.Fatalf("first attempt should pass")
	}
	if ok, _ := l.Allow(ctx, "ip:x"); ok {
		t.Fatalf("second attempt should be denied")
	}

	// Expire the window by hand, then the next attempt starts fresh.
	l.mu.Lock()
	l.windows["ip:x"].resetAt = time.Now().Add(-time.Second)
	l.mu.Unlock()
	if ok, _ := l.Allow(ctx, "ip:x"); !ok {
		t.Fatalf("attempt after window reset should pass")
	}
}

func TestLoginLimiter_Redis_AllowThenDeny(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewLoginLimiter(2, time.Minute, client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "ip:9.9.9.9"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow(ctx, "ip:9.9.9.9")
	if ok {
		t.Fatalf("attempt 3 should be denied")
	}
	if retryAfter <= 0 {
		t.Fatalf("retryAfter = %v", retryAfter)
	}

	// Window expiry clears the counter.
	mr.FastForward(2 * time.Minute)
	if ok, _ := l.Allow(ctx, "ip:9.9.9.9"); !ok {
		t.Fatalf("attempt after expiry should pass")
	}
}

func TestLoginLimiter_Redis_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewLoginLimiter(1, time.Minute, client)
	mr.Close() // backend down from here on

	if ok, _ := l.Allow(context.Background(), "ip:down"); !ok {
		t.Fatalf("expected fail-open when redis is unreachable")
	}
}

func TestLoginLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	l := NewLoginLimiter(1, time.Minute, nil)
	r.POST("/login", l.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first attempt: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: status = %d; want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}
