package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

const subscriptionColumns = `id, auth0_id, stripe_customer_id, status, current_period_end, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.StripeCustomerID, &sub.Status,
		&sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscription returns the subscription row of a user.
func (s *Storage) GetSubscription(ctx context.Context, auth0ID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE auth0_id = $1`, auth0ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpsertSubscription stores the subscription of sub.UserUID, replacing any
// previous row of that user.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, auth0_id, stripe_customer_id, status, current_period_end)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (auth0_id) DO UPDATE
			      SET id = EXCLUDED.id,
			          stripe_customer_id = EXCLUDED.stripe_customer_id,
			          status = EXCLUDED.status,
			          current_period_end = EXCLUDED.current_period_end,
			          updated_at = now()
			  RETURNING ` + subscriptionColumns
	saved, err := scanSubscription(s.DB.QueryRowContext(ctx, query,
		sub.ID, sub.UserUID, sub.StripeCustomerID, sub.Status, sub.CurrentPeriodEnd))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// UpdateSubscriptionStatus sets the status of the subscription with the
// given Stripe id.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}
