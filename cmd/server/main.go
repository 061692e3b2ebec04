package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/coderadar/internal/app"
	"github.com/sevigo/coderadar/internal/config"
	"github.com/sevigo/coderadar/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateForServer(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	slogLogger := logger.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(slogLogger)

	slogLogger.Info("starting coderadar application")

	application, cleanup, err := app.NewApp(ctx, cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	go func() {
		if err := application.Start(); err != nil {
			slogLogger.Error("server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slogLogger.Info("received shutdown signal")
	case <-ctx.Done():
		slogLogger.Info("context cancelled, shutting down")
	}

	if err := application.Stop(); err != nil {
		slogLogger.Error("failed to stop application", "error", err)
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return nil
}
