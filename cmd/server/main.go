package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/anonq/internal/api"
	"github.com/eldtechnologies/anonq/internal/config"
	"github.com/eldtechnologies/anonq/internal/conversation"
	"github.com/eldtechnologies/anonq/internal/crypto"
	"github.com/eldtechnologies/anonq/internal/handlers"
	"github.com/eldtechnologies/anonq/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Message storage: PostgreSQL when configured, SQLite otherwise
	var data store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		data = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
		}
		data = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer data.Close()

	// Admin sessions: Redis when configured, process memory otherwise
	var sessions store.SessionStore
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisSessionStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info().Msg("connected to Redis")
	} else {
		sessions = store.NewMemorySessionStore()
		logger.Warn().Msg("REDIS_URL not set, admin sessions are kept in memory")
	}

	passwordHash := cfg.AdminPasswordHash
	if passwordHash == "" && cfg.AdminPassword != "" {
		var err error
		passwordHash, err = crypto.HashPassword(cfg.AdminPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to hash admin password")
		}
	}
	if !cfg.AdminConfigured() {
		logger.Warn().Msg("admin credentials not configured, admin login is disabled")
	}

	svc := conversation.NewService(data)

	h, err := handlers.NewHandler(svc, data, sessions, handlers.Options{
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		SessionTTL:        cfg.SessionTTL,
		CookieSecure:      cfg.CookieSecure,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}

	// Create router
	router := api.NewRouter(logger, h)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting anonq server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
