package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/book-collection/internal/app/purger"
	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting book-purger", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := purger.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize book-purger", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("book-purger stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("book-purger stopped gracefully")
}
