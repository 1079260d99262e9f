// Package goal records goal-history rows when books are finished.
package goal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/book-collection/internal/goals"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

// Repository is the storage used to build a history row.
type Repository interface {
	GetUser(ctx context.Context, auth0ID string) (*models.User, error)
	GetStreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error)
	ListBooks(ctx context.Context, userUID string) ([]models.Book, error)
	CreateGoalHistory(ctx context.Context, h models.GoalHistory) (*models.GoalHistory, error)
}

// Recorder turns book.finished events into goal-history rows.
type Recorder struct {
	repo Repository
	log  *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(repo Repository, log *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record stores the goal state of the interval containing e.FinishedAt.
func (r *Recorder) Record(ctx context.Context, e models.BookFinishedEvent) (*models.GoalHistory, error) {
	const op = "services.goal.Record"

	interval := models.DefaultInterval
	settings, err := r.repo.GetStreakSettings(ctx, e.UserUID)
	switch {
	case err == nil:
		if models.IsInterval(settings.GoalInterval) {
			interval = settings.GoalInterval
		}
	case !errors.Is(err, storage.ErrSettingsNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := r.repo.GetUser(ctx, e.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	books, err := r.repo.ListBooks(ctx, e.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	h := goals.NewHistory(e.UserUID, interval, user.ReadingGoal, books, e.FinishedAt)
	saved, err := r.repo.CreateGoalHistory(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.log.Info("goal history recorded",
		slog.String("event_id", e.EventID),
		slog.String("interval", saved.Interval),
		slog.Int("achieved", saved.Achieved),
		slog.Int("target", saved.Target),
	)
	return saved, nil
}

// PublishBookFinished records e synchronously. It lets the API run without
// a broker.
func (r *Recorder) PublishBookFinished(ctx context.Context, e models.BookFinishedEvent) error {
	_, err := r.Record(ctx, e)
	return err
}

// HandleMessage decodes a broker delivery and records it. Undecodable
// messages and unknown users are dropped so that they are not redelivered.
func (r *Recorder) HandleMessage(ctx context.Context, body []byte) error {
	const op = "services.goal.HandleMessage"

	var e models.BookFinishedEvent
	if err := json.Unmarshal(body, &e); err != nil {
		r.log.Error("dropping malformed event", slog.String("op", op), sl.Err(err))
		return nil
	}
	if e.UserUID == "" || e.FinishedAt.IsZero() {
		r.log.Error("dropping incomplete event", slog.String("op", op), slog.String("event_id", e.EventID))
		return nil
	}

	if _, err := r.Record(ctx, e); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			r.log.Warn("dropping event for unknown user", slog.String("op", op), slog.String("event_id", e.EventID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
