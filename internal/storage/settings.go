package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

func scanSettings(row rowScanner) (*models.StreakSettings, error) {
	var (
		st   models.StreakSettings
		days []byte
	)
	if err := row.Scan(&st.ID, &st.UserUID, &days, &st.GoalInterval, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(days, &st.ExcludedDays); err != nil {
		return nil, err
	}
	if st.ExcludedDays == nil {
		st.ExcludedDays = []int{}
	}
	return &st, nil
}

// GetStreakSettings returns the streak settings of a user.
func (s *Storage) GetStreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error) {
	const op = "storage.GetStreakSettings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, auth0_id, excluded_days, goal_interval, created_at, updated_at
			  FROM streak_settings WHERE auth0_id = $1`
	st, err := scanSettings(s.DB.QueryRowContext(ctx, query, auth0ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSettingsNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// UpsertStreakSettings creates or replaces the settings of st.UserUID.
func (s *Storage) UpsertStreakSettings(ctx context.Context, st models.StreakSettings) (*models.StreakSettings, error) {
	const op = "storage.UpsertStreakSettings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	days := st.ExcludedDays
	if days == nil {
		days = []int{}
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO streak_settings (auth0_id, excluded_days, goal_interval)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (auth0_id) DO UPDATE
			      SET excluded_days = EXCLUDED.excluded_days,
			          goal_interval = EXCLUDED.goal_interval,
			          updated_at = now()
			  RETURNING id, auth0_id, excluded_days, goal_interval, created_at, updated_at`
	saved, err := scanSettings(s.DB.QueryRowContext(ctx, query, st.UserUID, string(raw), st.GoalInterval))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
