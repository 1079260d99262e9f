// Package storage implements persistence on PostgreSQL for books, users,
// streak settings, goal history and subscriptions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Registers the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrBookNotFound         = errors.New("book not found")
	ErrBookExists           = errors.New("book already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrSettingsNotFound     = errors.New("streak settings not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Storage wraps the PostgreSQL connection pool.
type Storage struct {
	DB *sql.DB
}

// New opens a connection pool and pings the server.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Close releases the pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CheckDatabaseReady reports an error when the schema has not been migrated.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'books'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage.CheckDatabaseReady: %w", err)
	}
	if !exists {
		return errors.New("storage.CheckDatabaseReady: required table books missing")
	}
	return nil
}

// Ready checks that the database is reachable and migrated.
func (s *Storage) Ready(ctx context.Context) error {
	return CheckDatabaseReady(ctx, s)
}

// WaitReady polls Ready up to attempts times, delay apart, for workers that
// start before the API has migrated the schema.
func (s *Storage) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	const op = "storage.WaitReady"

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(max(attempts, 1)-1)), ctx)
	if err := backoff.Retry(func() error { return s.Ready(ctx) }, b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
