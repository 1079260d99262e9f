// Package book implements the collection operations: listing with a
// read-through cache, adding with restore of soft-deleted titles, updates,
// soft deletes and restores.
package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/book-collection/internal/cache"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

// RecentlyDeletedWindow is how long a soft-deleted book stays restorable.
const RecentlyDeletedWindow = 30 * 24 * time.Hour

// loadTimeout bounds a shared collection load, which outlives the request
// that started it.
const loadTimeout = 30 * time.Second

// Repository is the book storage used by the service.
type Repository interface {
	ListBooks(ctx context.Context, userUID string) ([]models.Book, error)
	ListDeletedBooks(ctx context.Context, userUID string, since time.Time) ([]models.Book, error)
	GetBook(ctx context.Context, userUID string, id int64) (*models.Book, error)
	GetBookByTitle(ctx context.Context, userUID, title string) (*models.Book, error)
	CreateBook(ctx context.Context, b models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, b models.Book) (*models.Book, error)
	SoftDeleteBook(ctx context.Context, userUID string, id int64, at time.Time) error
	RestoreBook(ctx context.Context, userUID string, id int64) error
}

// Cache stores serialized collections. Invalidate bumps the version of a
// key; SetIfVersion stores only while the version is unchanged.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, value any, expiration time.Duration, version int64) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher receives book.finished events.
type EventPublisher interface {
	PublishBookFinished(ctx context.Context, e models.BookFinishedEvent) error
}

// AddResult tells whether Add created a book or restored a deleted one.
type AddResult struct {
	Book     *models.Book
	Restored bool
}

// Service implements the book operations for one user at a time.
type Service struct {
	repo      Repository
	cache     Cache
	publisher EventPublisher
	log       *slog.Logger
	ttl       time.Duration
	now       func() time.Time

	// loads collapses concurrent cache misses of one collection.
	loads singleflight.Group
}

// NewService creates a Service. Collections are cached for ttl.
func NewService(repo Repository, cache Cache, publisher EventPublisher, log *slog.Logger, ttl time.Duration) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Collection returns the user's live books, newest first.
func (s *Service) Collection(ctx context.Context, userUID string) ([]models.Book, error) {
	const op = "services.book.Collection"

	key := cache.CollectionKey(userUID)
	var books []models.Book
	found, err := s.cache.Get(ctx, key, &books)
	if err != nil {
		s.log.Warn("failed to read collection from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return books, nil
	}

	ch := s.loads.DoChan(key, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), key, userUID)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%s: %w", op, res.Err)
		}
		return res.Val.([]models.Book), nil
	}
}

// load reads the collection from storage and caches it unless the key was
// invalidated while the read was running.
func (s *Service) load(ctx context.Context, key, userUID string) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	version, verErr := s.cache.Version(ctx, key)
	if verErr != nil {
		s.log.Warn("failed to read collection version", slog.String("key", key), sl.Err(verErr))
	}

	books, err := s.repo.ListBooks(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	if verErr != nil {
		return books, nil
	}

	stored, err := s.cache.SetIfVersion(ctx, key, books, s.ttl, version)
	switch {
	case err != nil:
		s.log.Warn("failed to cache collection", slog.String("key", key), sl.Err(err))
	case !stored:
		s.log.Debug("collection changed while loading, not cached", slog.String("key", key))
	}
	return books, nil
}

// Add creates a book from in. A soft-deleted book with the same title is
// restored instead; a live one yields storage.ErrBookExists.
func (s *Service) Add(ctx context.Context, userUID string, in models.BookInput) (AddResult, error) {
	const op = "services.book.Add"

	existing, err := s.repo.GetBookByTitle(ctx, userUID, in.Title)
	switch {
	case err == nil && existing.IsDeleted():
		if err := s.repo.RestoreBook(ctx, userUID, existing.ID); err != nil {
			return AddResult{}, fmt.Errorf("%s: %w", op, err)
		}
		s.invalidate(ctx, userUID)
		existing.DeletedAt = nil
		s.log.Info("book restored on add", slog.Int64("id", existing.ID))
		return AddResult{Book: existing, Restored: true}, nil
	case err == nil:
		return AddResult{}, fmt.Errorf("%s: %w", op, storage.ErrBookExists)
	case !errors.Is(err, storage.ErrBookNotFound):
		return AddResult{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.repo.CreateBook(ctx, in.ToBook(userUID))
	if err != nil {
		return AddResult{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userUID)
	s.log.Info("book created", slog.Int64("id", created.ID))

	if created.FinishedAt != nil {
		s.publishFinished(ctx, created)
	}
	return AddResult{Book: created}, nil
}

// Update replaces every editable field of a live book owned by userUID.
func (s *Service) Update(ctx context.Context, userUID string, id int64, in models.BookInput) (*models.Book, error) {
	const op = "services.book.Update"

	current, err := s.repo.GetBook(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.IsDeleted() {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrBookNotFound)
	}

	b := in.ToBook(userUID)
	b.ID = id
	updated, err := s.repo.UpdateBook(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userUID)

	if current.FinishedAt == nil && updated.FinishedAt != nil {
		s.publishFinished(ctx, updated)
	}
	return updated, nil
}

// Remove soft-deletes a book.
func (s *Service) Remove(ctx context.Context, userUID string, id int64) error {
	const op = "services.book.Remove"

	if err := s.repo.SoftDeleteBook(ctx, userUID, id, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userUID)
	s.log.Info("book removed", slog.Int64("id", id))
	return nil
}

// Restore clears the deletion mark of a book.
func (s *Service) Restore(ctx context.Context, userUID string, id int64) error {
	const op = "services.book.Restore"

	if err := s.repo.RestoreBook(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userUID)
	s.log.Info("book restored", slog.Int64("id", id))
	return nil
}

// RecentlyDeleted lists books deleted within RecentlyDeletedWindow.
func (s *Service) RecentlyDeleted(ctx context.Context, userUID string) ([]models.Book, error) {
	const op = "services.book.RecentlyDeleted"

	books, err := s.repo.ListDeletedBooks(ctx, userUID, s.now().Add(-RecentlyDeletedWindow))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

func (s *Service) invalidate(ctx context.Context, userUID string) {
	key := cache.CollectionKey(userUID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate collection cache", slog.String("key", key), sl.Err(err))
	}
	// later readers must not join a load that started before the mutation
	s.loads.Forget(key)
}

// publishFinished never fails the mutation; a lost event only delays goal
// history.
func (s *Service) publishFinished(ctx context.Context, b *models.Book) {
	event := models.BookFinishedEvent{
		EventID:    uuid.NewString(),
		UserUID:    b.UserUID,
		BookID:     b.ID,
		FinishedAt: *b.FinishedAt,
	}
	if err := s.publisher.PublishBookFinished(ctx, event); err != nil {
		s.log.Error("failed to publish book finished event", slog.Int64("book_id", b.ID), sl.Err(err))
	}
}
