package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

// CreateGoalHistory stores a goal-history row and fills its id.
func (s *Storage) CreateGoalHistory(ctx context.Context, h models.GoalHistory) (*models.GoalHistory, error) {
	const op = "storage.CreateGoalHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO goal_history (auth0_id, goal_interval, target, achieved, start_date,
			      end_date, was_completed)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, created_at, updated_at`
	if err := s.DB.QueryRowContext(ctx, query,
		h.UserUID, h.Interval, h.Target, h.Achieved, h.StartDate, h.EndDate, h.WasCompleted,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &h, nil
}

// ListGoalHistory returns all goal-history rows of a user, latest first.
func (s *Storage) ListGoalHistory(ctx context.Context, auth0ID string) ([]models.GoalHistory, error) {
	const op = "storage.ListGoalHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, auth0_id, goal_interval, target, achieved, start_date, end_date,
			      was_completed, created_at, updated_at
			  FROM goal_history
			  WHERE auth0_id = $1
			  ORDER BY end_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, auth0ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.GoalHistory, 0)
	for rows.Next() {
		var h models.GoalHistory
		if err := rows.Scan(&h.ID, &h.UserUID, &h.Interval, &h.Target, &h.Achieved, &h.StartDate,
			&h.EndDate, &h.WasCompleted, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
