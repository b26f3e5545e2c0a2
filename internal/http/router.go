// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/auth"
	"github.com/promptforge/go-prompt-backend/internal/config"
	"github.com/promptforge/go-prompt-backend/internal/domain"
	"github.com/promptforge/go-prompt-backend/internal/http/handlers"
	"github.com/promptforge/go-prompt-backend/internal/http/middleware"
	"github.com/promptforge/go-prompt-backend/internal/repo"
	"github.com/promptforge/go-prompt-backend/internal/services"
	"github.com/promptforge/go-prompt-backend/internal/session"
)

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the AuthService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, username, email, passwordHash)
}

func (userRepoShim) GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.GetUserByUsername(ctx, db, username)
}

func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// promptRepoShim adapts the repository free functions to services.PromptRepo.
type promptRepoShim struct{}

func (promptRepoShim) CreatePrompt(ctx context.Context, db *gorm.DB, userID, original, enhanced, promptType, focus string, improvements datatypes.JSON) (*domain.Prompt, error) {
	return repo.CreatePrompt(ctx, db, userID, original, enhanced, promptType, focus, improvements)
}

func (promptRepoShim) ListPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) ([]domain.Prompt, error) {
	return repo.ListPrompts(ctx, db, userID, favoritesOnly)
}

func (promptRepoShim) CountPrompts(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool) (int64, error) {
	return repo.CountPrompts(ctx, db, userID, favoritesOnly)
}

func (promptRepoShim) ListPromptsPage(ctx context.Context, db *gorm.DB, userID string, favoritesOnly bool, offset, limit int) ([]domain.Prompt, error) {
	return repo.ListPromptsPage(ctx, db, userID, favoritesOnly, offset, limit)
}

func (promptRepoShim) GetPrompt(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Prompt, error) {
	return repo.GetPrompt(ctx, db, id, userID)
}

func (promptRepoShim) SetFavorite(ctx context.Context, db *gorm.DB, id, userID string, favorite bool) (*domain.Prompt, error) {
	return repo.SetFavorite(ctx, db, id, userID, favorite)
}

func (promptRepoShim) DeletePrompt(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeletePrompt(ctx, db, id, userID)
}

// conversationRepoShim adapts the repository free functions to
// services.ConversationRepo.
type conversationRepoShim struct{}

func (conversationRepoShim) CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	return repo.CreateConversation(ctx, db, userID, title)
}

func (conversationRepoShim) ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return repo.ListConversations(ctx, db, userID)
}

func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id, userID)
}

func (conversationRepoShim) UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateConversationTitle(ctx, db, id, userID, title)
}

func (conversationRepoShim) DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteConversation(ctx, db, id, userID)
}

func (conversationRepoShim) CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountConversations(ctx, db, userID)
}

func (conversationRepoShim) ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, userID, offset, limit)
}

// Deps carries the externally-constructed dependencies the router needs.
// Everything else (services, handlers, limiters) is wired internally.
type Deps struct {
	DB        *gorm.DB
	Generator ai.TextGenerator
	Sessions  session.Store
	// Redis backs the login limiter when present; nil falls back to an
	// in-process limiter.
	Redis *redis.Client
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip, CORS and Security headers
//  8. Per-group: auth → idempotency validator → rate limiter
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       false,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", "Idempotency-Replayed"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/generator/store
	db := deps.DB
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.OTEL.ServiceName, cfg.Auth.TokenTTL)
	authSvc := services.NewAuthService(db, userRepoShim{}, tokens)
	promptSvc := &services.PromptService{
		DB:             db,
		Repo:           promptRepoShim{},
		Generator:      deps.Generator,
		MaxPromptRunes: 2000,
	}
	convSvc := services.NewConversationService(db, conversationRepoShim{})
	turnSvc := &services.TurnService{
		DB:             db,
		Generator:      deps.Generator,
		MaxPromptRunes: 2000,
		MaxReplyRunes:  1500,
		TitleMaxLen:    6,
		TitleLocale:    language.English,
	}
	sessSvc := &services.SessionChatService{
		Store:          deps.Sessions,
		Generator:      deps.Generator,
		MaxPromptRunes: 2000,
		MaxReplyRunes:  1500,
	}

	h := handlers.New(authSvc, promptSvc, convSvc, turnSvc, sessSvc)

	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// Public auth endpoints: no bearer token, but a strict fixed-window
	// limiter to slow credential stuffing.
	loginRL := middleware.NewLoginLimiter(cfg.LoginRate.Limit, cfg.LoginRate.Window, deps.Redis)
	pub := groupWithPrefix(r, apiBase)
	pub.Use(loginRL.Handler())
	{
		pub.POST("/auth/register", h.Register)
		pub.POST("/auth/login", h.Login)
	}

	// Protected API: bearer auth, then idempotency validation (before rate
	// limiting so replays bypass the bucket), then the token-bucket limiter.
	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.RequireAuth(tokens))
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, conversationID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, conversationID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Enhancement
		api.POST("/enhance", h.EnhancePrompt)

		// Prompt library
		api.POST("/prompts", h.CreatePrompt)
		api.GET("/prompts", h.ListPrompts)
		api.GET("/prompts/:id", h.GetPrompt)
		api.PATCH("/prompts/:id/favorite", h.SetFavorite)
		api.DELETE("/prompts/:id", h.DeletePrompt)

		// Conversations
		api.POST("/conversations", h.CreateConversation)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.PUT("/conversations/:id/title", h.UpdateConversationTitle)
		api.DELETE("/conversations/:id", h.DeleteConversation)

		// Messages
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/messages", h.PostMessage)

		// Ephemeral chat sessions
		api.POST("/chat/sessions", h.StartSession)
		api.GET("/chat/sessions/:id", h.GetSession)
		api.POST("/chat/sessions/:id/messages", h.PostSessionMessage)
		api.DELETE("/chat/sessions/:id", h.EndSession)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
