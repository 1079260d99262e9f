package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

const bookColumns = `id, user_uid, title, author, genre, cover_image, rating, page_count,
	started_at, finished_at, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		b                            models.Book
		rating                       sql.NullFloat64
		pages                        sql.NullInt32
		started, finished, deletedAt sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.UserUID, &b.Title, &b.Author, &b.Genre, &b.CoverImage,
		&rating, &pages, &started, &finished, &deletedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	if rating.Valid {
		r := rating.Float64
		b.Rating = &r
	}
	if pages.Valid {
		p := int(pages.Int32)
		b.PageCount = &p
	}
	b.StartedAt = nullTime(started)
	b.FinishedAt = nullTime(finished)
	b.DeletedAt = nullTime(deletedAt)
	return &b, nil
}

func (s *Storage) queryBooks(ctx context.Context, op, query string, args ...any) ([]models.Book, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListBooks returns the live books of a user, newest first.
func (s *Storage) ListBooks(ctx context.Context, userUID string) ([]models.Book, error) {
	const op = "storage.ListBooks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + bookColumns + `
			  FROM books
			  WHERE user_uid = $1 AND deleted_at IS NULL
			  ORDER BY created_at DESC, id DESC`
	return s.queryBooks(ctx, op, query, userUID)
}

// ListDeletedBooks returns books of a user soft-deleted at or after since.
func (s *Storage) ListDeletedBooks(ctx context.Context, userUID string, since time.Time) ([]models.Book, error) {
	const op = "storage.ListDeletedBooks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + bookColumns + `
			  FROM books
			  WHERE user_uid = $1 AND deleted_at IS NOT NULL AND deleted_at >= $2
			  ORDER BY deleted_at DESC`
	return s.queryBooks(ctx, op, query, userUID, since)
}

// GetBook returns a book owned by userUID, deleted or not.
func (s *Storage) GetBook(ctx context.Context, userUID string, id int64) (*models.Book, error) {
	const op = "storage.GetBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 AND user_uid = $2`
	b, err := scanBook(s.DB.QueryRowContext(ctx, query, id, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// GetBookByTitle looks a book up by its exact title, including deleted ones.
func (s *Storage) GetBookByTitle(ctx context.Context, userUID, title string) (*models.Book, error) {
	const op = "storage.GetBookByTitle"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE user_uid = $1 AND title = $2`
	b, err := scanBook(s.DB.QueryRowContext(ctx, query, userUID, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// CreateBook inserts a book and returns the stored row.
func (s *Storage) CreateBook(ctx context.Context, b models.Book) (*models.Book, error) {
	const op = "storage.CreateBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO books (user_uid, title, author, genre, cover_image, rating, page_count,
			      started_at, finished_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING ` + bookColumns
	created, err := scanBook(s.DB.QueryRowContext(ctx, query,
		b.UserUID, b.Title, b.Author, b.Genre, b.CoverImage, b.Rating, b.PageCount,
		b.StartedAt, b.FinishedAt))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%s: %w", op, ErrBookExists)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpdateBook overwrites the editable fields of a live book.
func (s *Storage) UpdateBook(ctx context.Context, b models.Book) (*models.Book, error) {
	const op = "storage.UpdateBook"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books
			  SET title = $1, author = $2, genre = $3, cover_image = $4, rating = $5,
			      page_count = $6, started_at = $7, finished_at = $8, updated_at = now()
			  WHERE id = $9 AND user_uid = $10 AND deleted_at IS NULL
			  RETURNING ` + bookColumns
	updated, err := scanBook(s.DB.QueryRowContext(ctx, query,
		b.Title, b.Author, b.Genre, b.CoverImage, b.Rating, b.PageCount,
		b.StartedAt, b.FinishedAt, b.ID, b.UserUID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%s: %w", op, ErrBookNotFound)
	case isUniqueViolation(err):
		return nil, fmt.Errorf("%s: %w", op, ErrBookExists)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// SoftDeleteBook marks a live book as deleted at the given time.
func (s *Storage) SoftDeleteBook(ctx context.Context, userUID string, id int64, at time.Time) error {
	const op = "storage.SoftDeleteBook"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET deleted_at = $1, updated_at = now()
			  WHERE id = $2 AND user_uid = $3 AND deleted_at IS NULL`
	return s.execOne(ctx, op, query, at, id, userUID)
}

// RestoreBook clears deleted_at of a soft-deleted book.
func (s *Storage) RestoreBook(ctx context.Context, userUID string, id int64) error {
	const op = "storage.RestoreBook"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE books SET deleted_at = NULL, updated_at = now()
			  WHERE id = $1 AND user_uid = $2 AND deleted_at IS NOT NULL`
	return s.execOne(ctx, op, query, id, userUID)
}

// PurgeDeletedBooks hard-deletes books soft-deleted before cutoff and
// returns how many rows were removed.
func (s *Storage) PurgeDeletedBooks(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "storage.PurgeDeletedBooks"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM books WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one book.
func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrBookNotFound)
	}
	return nil
}
