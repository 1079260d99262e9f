// Package user implements account settings: reading goal, streak settings,
// goal history and the goal summaries derived from them.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/goals"
	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

// ErrInvalidInput is returned for values the storage would accept but the
// domain does not.
var ErrInvalidInput = errors.New("invalid input")

// Repository is the storage used by the service.
type Repository interface {
	GetUser(ctx context.Context, auth0ID string) (*models.User, error)
	GetOrCreateUser(ctx context.Context, auth0ID, email string) (*models.User, error)
	UpdateReadingGoal(ctx context.Context, auth0ID string, goal int) error
	GetStreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error)
	UpsertStreakSettings(ctx context.Context, st models.StreakSettings) (*models.StreakSettings, error)
	CreateGoalHistory(ctx context.Context, h models.GoalHistory) (*models.GoalHistory, error)
	ListGoalHistory(ctx context.Context, auth0ID string) ([]models.GoalHistory, error)
	ListBooks(ctx context.Context, userUID string) ([]models.Book, error)
}

// Service implements the user operations.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewService creates a Service.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// EnsureUser returns the user with auth0ID, creating it on first use.
func (s *Service) EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	const op = "services.user.EnsureUser"

	u, err := s.repo.GetOrCreateUser(ctx, auth0ID, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ReadingGoal returns the user's reading goal.
func (s *Service) ReadingGoal(ctx context.Context, auth0ID string) (int, error) {
	const op = "services.user.ReadingGoal"

	u, err := s.repo.GetUser(ctx, auth0ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return u.ReadingGoal, nil
}

// UpdateReadingGoal sets the user's reading goal.
func (s *Service) UpdateReadingGoal(ctx context.Context, auth0ID string, goal int) error {
	const op = "services.user.UpdateReadingGoal"

	if goal < 0 {
		return fmt.Errorf("%s: %w: reading goal must not be negative", op, ErrInvalidInput)
	}
	if err := s.repo.UpdateReadingGoal(ctx, auth0ID, goal); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("reading goal updated", slog.Int("goal", goal))
	return nil
}

// StreakSettings returns the user's settings, storing defaults on first read.
func (s *Service) StreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error) {
	const op = "services.user.StreakSettings"

	st, err := s.repo.GetStreakSettings(ctx, auth0ID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, storage.ErrSettingsNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st, err = s.repo.UpsertStreakSettings(ctx, models.StreakSettings{
		UserUID:      auth0ID,
		ExcludedDays: []int{},
		GoalInterval: models.DefaultInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// UpdateStreakSettings replaces the user's settings. An empty interval means
// the default one; excluded days are deduplicated and sorted.
func (s *Service) UpdateStreakSettings(ctx context.Context, auth0ID string, in models.StreakSettingsInput) (*models.StreakSettings, error) {
	const op = "services.user.UpdateStreakSettings"

	interval := in.GoalInterval
	if interval == "" {
		interval = models.DefaultInterval
	}
	if !models.IsInterval(interval) {
		return nil, fmt.Errorf("%s: %w: unknown goal interval %q", op, ErrInvalidInput, interval)
	}

	seen := make(map[int]bool, len(in.ExcludedDays))
	days := make([]int, 0, len(in.ExcludedDays))
	for _, d := range in.ExcludedDays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%s: %w: weekday %d out of range", op, ErrInvalidInput, d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Ints(days)

	st, err := s.repo.UpsertStreakSettings(ctx, models.StreakSettings{
		UserUID:      auth0ID,
		ExcludedDays: days,
		GoalInterval: interval,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// RecordGoalHistory stores a goal result reported by the client.
func (s *Service) RecordGoalHistory(ctx context.Context, auth0ID string, in models.GoalHistoryInput) (*models.GoalHistory, error) {
	const op = "services.user.RecordGoalHistory"

	if !models.IsInterval(in.Interval) {
		return nil, fmt.Errorf("%s: %w: unknown goal interval %q", op, ErrInvalidInput, in.Interval)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%s: %w: end date before start date", op, ErrInvalidInput)
	}

	h, err := s.repo.CreateGoalHistory(ctx, models.GoalHistory{
		UserUID:      auth0ID,
		Interval:     in.Interval,
		Target:       in.Target,
		Achieved:     in.Achieved,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		WasCompleted: in.Achieved >= in.Target,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

// GoalStats summarizes the user's goal history.
func (s *Service) GoalStats(ctx context.Context, auth0ID string) (models.GoalStats, error) {
	const op = "services.user.GoalStats"

	histories, err := s.repo.ListGoalHistory(ctx, auth0ID)
	if err != nil {
		return models.GoalStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return goals.Summarize(histories), nil
}

// GoalProgress reports progress toward the reading goal in the current
// interval. Interval bounds follow the time zone carried by ctx.
func (s *Service) GoalProgress(ctx context.Context, auth0ID string) (models.GoalProgress, error) {
	const op = "services.user.GoalProgress"

	u, err := s.repo.GetUser(ctx, auth0ID)
	if err != nil {
		return models.GoalProgress{}, fmt.Errorf("%s: %w", op, err)
	}
	st, err := s.StreakSettings(ctx, auth0ID)
	if err != nil {
		return models.GoalProgress{}, fmt.Errorf("%s: %w", op, err)
	}
	books, err := s.repo.ListBooks(ctx, auth0ID)
	if err != nil {
		return models.GoalProgress{}, fmt.Errorf("%s: %w", op, err)
	}
	return goals.Progress(books, u.ReadingGoal, st.GoalInterval, calendar.InContext(ctx, s.now())), nil
}
