// Package main provides the repo-rag HTTP API entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/repo-rag/internal/app"
	"github.com/bull/repo-rag/internal/config"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	err = components.Serve(ctx, addr)
	components.Close()
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
