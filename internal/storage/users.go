package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

const userColumns = `id, auth0_id, email, stripe_customer_id, reading_goal, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Auth0ID, &u.Email, &u.StripeCustomerID, &u.ReadingGoal,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns the user with the given Auth0 id.
func (s *Storage) GetUser(ctx context.Context, auth0ID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth0_id = $1`, auth0ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetOrCreateUser returns the user, inserting it on first sight. A known
// user without an email gets the given one.
func (s *Storage) GetOrCreateUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	const op = "storage.GetOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (auth0_id, email)
			  VALUES ($1, $2)
			  ON CONFLICT (auth0_id) DO UPDATE
			      SET email = CASE WHEN users.email = '' THEN EXCLUDED.email ELSE users.email END
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, auth0ID, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateReadingGoal stores the user's reading goal.
func (s *Storage) UpdateReadingGoal(ctx context.Context, auth0ID string, goal int) error {
	const op = "storage.UpdateReadingGoal"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE users SET reading_goal = $1, updated_at = now() WHERE auth0_id = $2`, goal, auth0ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return userAffected(op, result)
}

// SetStripeCustomerID links a Stripe customer to the user.
func (s *Storage) SetStripeCustomerID(ctx context.Context, auth0ID, customerID string) error {
	const op = "storage.SetStripeCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $1, updated_at = now() WHERE auth0_id = $2`, customerID, auth0ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return userAffected(op, result)
}

func userAffected(op string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
