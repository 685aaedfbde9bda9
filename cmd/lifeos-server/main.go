// Package main provides the LifeOS chat API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lifeos/internal/config"
	"lifeos/internal/db"
	"lifeos/internal/llm"
	"lifeos/internal/server"
)

func main() {
	// Optional .env for local development; env vars win either way.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	slog.Info("starting lifeos-server", "port", cfg.ServerPort, "provider", cfg.LLMProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := db.NewClient(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	model, err := llm.NewModel(ctx, cfg, store)
	cancel()
	if err != nil {
		slog.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv := server.New(cfg, store, model, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
