package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/internal/api"
	"github.com/nexus-FayazKhan/Wattnest/internal/config"
	"github.com/nexus-FayazKhan/Wattnest/internal/relay"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}

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

	// Initialize history store
	var history relay.HistoryStore
	if cfg.HistoryDB != "" {
		sqliteHistory, err := relay.NewSQLiteHistory(ctx, cfg.HistoryDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite history open failed")
		}
		history = sqliteHistory
		logger.Info().Str("path", cfg.HistoryDB).Msg("using SQLite history")
	} else {
		history = relay.NewMemoryHistory(cfg.HistoryLimit)
		logger.Info().Int("limit", cfg.HistoryLimit).Msg("using in-memory history")
	}
	defer history.Close()

	// Build the hub and router
	directory := relay.NewDirectory(cfg.Roster)
	hub := relay.NewHub(history, directory, cfg.HistoryLimit, logger)
	router := api.NewRouter(logger, hub)

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
			Msg("starting chat relay")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down relay...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("relay stopped")
}
