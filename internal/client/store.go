package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/filter"
	"github.com/magabrotheeeer/book-collection/internal/models"
	statsservice "github.com/magabrotheeeer/book-collection/internal/services/stats"
	"github.com/magabrotheeeer/book-collection/internal/stats"
)

// fetchAllPageSize asks the collection endpoint for every book in one page.
const fetchAllPageSize = filter.MaxPageSize

// CollectionAPI is the part of the API the Store needs.
type CollectionAPI interface {
	Collection(ctx context.Context, q CollectionQuery) (filter.Result, error)
	AddBook(ctx context.Context, in models.BookInput) (AddResult, error)
	UpdateBook(ctx context.Context, id int64, in models.BookInput) (models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	RestoreBook(ctx context.Context, id int64) error
}

// Store holds the last fetched collection of the signed-in user.
//
// Every Refresh takes a generation number before it fetches. A response is
// applied only if no later refresh has been applied already, so a slow reply
// can never overwrite a newer one.
type Store struct {
	api CollectionAPI

	mu          sync.RWMutex
	books       []models.Book
	nextGen     uint64
	appliedGen  uint64
	subscribers map[int]chan struct{}
	nextSub     int
}

// NewStore creates an empty Store.
func NewStore(api CollectionAPI) *Store {
	return &Store{
		api:         api,
		subscribers: make(map[int]chan struct{}),
	}
}

// Refresh reloads the collection. It reports whether the response was
// applied; a response superseded by a newer refresh is dropped.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	const op = "client.Store.Refresh"

	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	res, err := s.api.Collection(ctx, CollectionQuery{PageSize: fetchAllPageSize})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if gen < s.appliedGen {
		s.mu.Unlock()
		return false, nil
	}
	s.appliedGen = gen
	s.books = append([]models.Book(nil), res.Books...)
	s.mu.Unlock()

	s.notify()
	return true, nil
}

// Books returns a copy of the held collection.
func (s *Store) Books() []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Book(nil), s.books...)
}

// Filtered applies view to the held collection.
func (s *Store) Filtered(view *filter.View) filter.Result {
	return view.Result(s.Books())
}

// Stats computes statistics over the held collection. Premium figures are
// included only when premium is set.
func (s *Store) Stats(now time.Time, premium bool, excluded map[time.Weekday]bool) statsservice.Result {
	books := s.Books()
	res := statsservice.Result{Basic: stats.ComputeBasic(books), Tier: models.TierFree}
	if premium {
		p := stats.ComputePremium(books, now, excluded)
		res.Premium = &p
		res.Tier = models.TierPremium
	}
	return res
}

// Add adds a book and reloads the collection.
func (s *Store) Add(ctx context.Context, in models.BookInput) (AddResult, error) {
	res, err := s.api.AddBook(ctx, in)
	if err != nil {
		return AddResult{}, err
	}
	_, err = s.Refresh(ctx)
	return res, err
}

// Update edits a book and reloads the collection.
func (s *Store) Update(ctx context.Context, id int64, in models.BookInput) (models.Book, error) {
	b, err := s.api.UpdateBook(ctx, id, in)
	if err != nil {
		return models.Book{}, err
	}
	_, err = s.Refresh(ctx)
	return b, err
}

// Remove deletes a book and reloads the collection.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.api.DeleteBook(ctx, id); err != nil {
		return err
	}
	_, err := s.Refresh(ctx)
	return err
}

// Restore brings a deleted book back and reloads the collection.
func (s *Store) Restore(ctx context.Context, id int64) error {
	if err := s.api.RestoreBook(ctx, id); err != nil {
		return err
	}
	_, err := s.Refresh(ctx)
	return err
}

// Subscribe returns a channel signalled after every applied refresh and a
// function that cancels the subscription. Signals coalesce while the
// subscriber is busy.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
