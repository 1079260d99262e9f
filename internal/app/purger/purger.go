// Package purger runs the periodic hard delete of old soft-deleted books.
package purger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	purgerservice "github.com/magabrotheeeer/book-collection/internal/services/purger"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// App is the purger process.
type App struct {
	service *purgerservice.Service
	db      *storage.Storage
	logger  *slog.Logger
}

// New connects to the database and waits for the schema.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := db.WaitReady(ctx, dbReadyAttempts, dbReadyDelay); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		service: purgerservice.NewService(db, logger, cfg.PurgeInterval, cfg.Retention),
		db:      db,
		logger:  logger,
	}, nil
}

// Run purges on schedule until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.service.Run(ctx)

	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
