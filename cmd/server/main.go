package main

import (
	"context"
	"log/slog"
	"os"

	"go-api-template/internal/app"
	"go-api-template/internal/config"
	"go-api-template/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(logger.NewPrettyHandler(os.Stderr, slog.LevelInfo, true)).
			Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(log)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
