// Package purger hard-deletes books that stayed soft-deleted past the
// retention period.
package purger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
)

// Repository removes soft-deleted books.
type Repository interface {
	PurgeDeletedBooks(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service runs the purge periodically.
type Service struct {
	repo      Repository
	log       *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewService creates a Service purging every interval the books deleted
// more than retention ago.
func NewService(repo Repository, log *slog.Logger, interval, retention time.Duration) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// PurgeOnce deletes the expired books and returns how many were removed.
func (s *Service) PurgeOnce(ctx context.Context) (int64, error) {
	const op = "services.purger.PurgeOnce"

	cutoff := s.now().Add(-s.retention)
	n, err := s.repo.PurgeDeletedBooks(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("purged deleted books", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	return n, nil
}

// Run purges immediately and then on every tick until ctx is done.
// Failed runs are logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("purger stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if _, err := s.PurgeOnce(ctx); err != nil {
		s.log.Error("failed to purge deleted books", sl.Err(err))
	}
}
