// Command server runs the prompt backend HTTP API.
//
// It loads configuration from the environment (.env supported in dev), opens
// the SQLite store, wires the AI generator and session store, sets up
// OpenTelemetry, and serves the Gin router with graceful shutdown.
//
//	@title			Prompt Backend API
//	@version		1.0
//	@description	Prompt enhancement, conversations, and ephemeral chat sessions.
//	@BasePath		/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/promptforge/go-prompt-backend/docs"
	"github.com/promptforge/go-prompt-backend/internal/ai"
	"github.com/promptforge/go-prompt-backend/internal/config"
	httpapi "github.com/promptforge/go-prompt-backend/internal/http"
	"github.com/promptforge/go-prompt-backend/internal/observability"
	"github.com/promptforge/go-prompt-backend/internal/repo"
	"github.com/promptforge/go-prompt-backend/internal/session"
	"github.com/promptforge/go-prompt-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database failed")
	}

	gen, err := buildGenerator(cfg.AI)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("ai generator setup failed")
	}

	var rdb *redis.Client
	var sessions session.Store
	if cfg.Session.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Session.RedisAddr).Msg("redis ping failed")
		}
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL)
		log.Info().Str("addr", cfg.Session.RedisAddr).Msg("using redis session store")
	} else {
		sessions = session.NewMemoryStore(cfg.Session.TTL, cfg.Session.MaxSessions)
		log.Info().Int("max", cfg.Session.MaxSessions).Msg("using in-memory session store")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Generator: gen,
		Sessions:  sessions,
		Redis:     rdb,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown error")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// buildGenerator selects the configured AI provider. Provider-specific API
// key env vars are honored as fallbacks so existing deployments keep working.
func buildGenerator(cfg config.AIConfig) (ai.TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		key := sysutil.FirstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		return ai.NewOpenAICompatGenerator(cfg.BaseURL, key, cfg.Model), nil
	default: // gemini
		key := sysutil.FirstNonEmpty(cfg.APIKey, os.Getenv("GEMINI_API_KEY"))
		return ai.NewGeminiGenerator(key, cfg.Model)
	}
}
