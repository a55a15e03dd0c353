// Socratic chat backend entrypoint: loads configuration, opens storage,
// builds the dialogue engine and analytics cache, wires the HTTP router,
// and runs the server with graceful shutdown.
//
// @title          Socratic Chat Backend API
// @version        1.0
// @description    Tutoring chat API with session management, retrieval-grounded dialogue, feedback capture, and an admin analytics dashboard.
// @license.name   MIT
// @BasePath       /api/v1
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unilearn/socratic-chat-backend/docs"
	"github.com/unilearn/socratic-chat-backend/internal/cache"
	"github.com/unilearn/socratic-chat-backend/internal/config"
	"github.com/unilearn/socratic-chat-backend/internal/dialogue"
	httpapi "github.com/unilearn/socratic-chat-backend/internal/http"
	"github.com/unilearn/socratic-chat-backend/internal/observability"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
	"github.com/unilearn/socratic-chat-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is a dev convenience; real deployments set the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("gin_mode", cfg.GinMode).Msg("starting socratic-chat-backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing disabled")
		}
	}

	index, err := dialogue.NewIndexFromBook(cfg.BookPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.BookPath).Msg("load course text failed")
	}
	engine := dialogue.NewRetrieval(index, cfg.Threshold)

	snapCache := newSnapshotCache(ctx, cfg)

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, db, engine, snapCache, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// newSnapshotCache picks Redis when REDIS_ADDR is configured and falls back
// to the in-process cache otherwise, or when Redis is unreachable at boot.
func newSnapshotCache(ctx context.Context, cfg config.Config) cache.Cache {
	if cfg.Analytics.RedisAddr == "" {
		return cache.NewMemory()
	}
	c, err := cache.NewRedis(ctx, cfg.Analytics.RedisAddr, cfg.Analytics.RedisPass, cfg.Analytics.RedisDB)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Analytics.RedisAddr).Msg("redis unavailable, using in-process cache")
		return cache.NewMemory()
	}
	log.Info().Str("addr", cfg.Analytics.RedisAddr).Msg("snapshot cache on redis")
	return c
}
