package book

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/book-collection/internal/cache"
	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

const (
	testUID = "auth0|reader"
	testKey = "books:auth0|reader"
	testTTL = 5 * time.Minute
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListBooks(ctx context.Context, userUID string) ([]models.Book, error) {
	args := m.Called(ctx, userUID)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func (m *RepoMock) ListDeletedBooks(ctx context.Context, userUID string, since time.Time) ([]models.Book, error) {
	args := m.Called(ctx, userUID, since)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func (m *RepoMock) GetBook(ctx context.Context, userUID string, id int64) (*models.Book, error) {
	args := m.Called(ctx, userUID, id)
	b, _ := args.Get(0).(*models.Book)
	return b, args.Error(1)
}

func (m *RepoMock) GetBookByTitle(ctx context.Context, userUID, title string) (*models.Book, error) {
	args := m.Called(ctx, userUID, title)
	b, _ := args.Get(0).(*models.Book)
	return b, args.Error(1)
}

func (m *RepoMock) CreateBook(ctx context.Context, b models.Book) (*models.Book, error) {
	args := m.Called(ctx, b)
	out, _ := args.Get(0).(*models.Book)
	return out, args.Error(1)
}

func (m *RepoMock) UpdateBook(ctx context.Context, b models.Book) (*models.Book, error) {
	args := m.Called(ctx, b)
	out, _ := args.Get(0).(*models.Book)
	return out, args.Error(1)
}

func (m *RepoMock) SoftDeleteBook(ctx context.Context, userUID string, id int64, at time.Time) error {
	return m.Called(ctx, userUID, id, at).Error(0)
}

func (m *RepoMock) RestoreBook(ctx context.Context, userUID string, id int64) error {
	return m.Called(ctx, userUID, id).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Version(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).(int64)
	return v, args.Error(1)
}

func (m *CacheMock) SetIfVersion(ctx context.Context, key string, value any, expiration time.Duration, version int64) (bool, error) {
	args := m.Called(ctx, key, value, expiration, version)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishBookFinished(ctx context.Context, e models.BookFinishedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	repo      *RepoMock
	cache     *CacheMock
	publisher *PublisherMock
	svc       *Service
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(RepoMock),
		cache:     new(CacheMock),
		publisher: new(PublisherMock),
		now:       time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, f.cache, f.publisher, newNoopLogger(), testTTL)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func ptr[T any](v T) *T { return &v }

func TestService_Collection(t *testing.T) {
	books := []models.Book{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Emma"}}

	tests := []struct {
		name    string
		setup   func(f *fixture)
		want    []models.Book
		wantErr bool
	}{
		{
			name: "cache hit skips storage",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).
					Run(func(args mock.Arguments) {
						*args.Get(2).(*[]models.Book) = books
					}).Return(true, nil).Once()
			},
			want: books,
		},
		{
			name: "cache miss loads and stores",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, nil).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(3), nil).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(books, nil).Once()
				f.cache.On("SetIfVersion", mock.Anything, testKey, books, testTTL, int64(3)).Return(true, nil).Once()
			},
			want: books,
		},
		{
			name: "invalidated during load is not cached",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, nil).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(3), nil).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(books, nil).Once()
				f.cache.On("SetIfVersion", mock.Anything, testKey, books, testTTL, int64(3)).Return(false, nil).Once()
			},
			want: books,
		},
		{
			name: "cache errors do not fail the read",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, errors.New("redis down")).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(0), nil).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(books, nil).Once()
				f.cache.On("SetIfVersion", mock.Anything, testKey, books, testTTL, int64(0)).Return(false, errors.New("redis down")).Once()
			},
			want: books,
		},
		{
			name: "unknown version skips the write",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, nil).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(0), errors.New("redis down")).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(books, nil).Once()
			},
			want: books,
		},
		{
			name: "empty collection is not nil",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, nil).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(0), nil).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(nil, nil).Once()
				f.cache.On("SetIfVersion", mock.Anything, testKey, []models.Book{}, testTTL, int64(0)).Return(true, nil).Once()
			},
			want: []models.Book{},
		},
		{
			name: "storage error",
			setup: func(f *fixture) {
				f.cache.On("Get", mock.Anything, testKey, mock.Anything).Return(false, nil).Once()
				f.cache.On("Version", mock.Anything, testKey).Return(int64(0), nil).Once()
				f.repo.On("ListBooks", mock.Anything, testUID).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			got, err := f.svc.Collection(context.Background(), testUID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			f.assertExpectations(t)
		})
	}
}

func TestService_Add(t *testing.T) {
	finished := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("creates a new book", func(t *testing.T) {
		f := newFixture()
		in := models.BookInput{Title: "Dune", Author: "Frank Herbert"}
		f.repo.On("GetBookByTitle", mock.Anything, testUID, "Dune").Return(nil, storage.ErrBookNotFound).Once()
		f.repo.On("CreateBook", mock.Anything, in.ToBook(testUID)).
			Return(&models.Book{ID: 7, UserUID: testUID, Title: "Dune"}, nil).Once()
		f.cache.On("Invalidate", mock.Anything, testKey).Return(nil).Once()

		res, err := f.svc.Add(context.Background(), testUID, in)
		require.NoError(t, err)
		assert.False(t, res.Restored)
		assert.Equal(t, int64(7), res.Book.ID)
		f.assertExpectations(t)
	})

	t.Run("publishes when created finished", func(t *testing.T) {
		f := newFixture()
		in := models.BookInput{Title: "Dune", Author: "Frank Herbert", FinishedAt: &finished}
		f.repo.On("GetBookByTitle", mock.Anything, testUID, "Dune").Return(nil, storage.ErrBookNotFound).Once()
		f.repo.On("CreateBook", mock.Anything, mock.Anything).
			Return(&models.Book{ID: 7, UserUID: testUID, Title: "Dune", FinishedAt: &finished}, nil).Once()
		f.cache.On("Invalidate", mock.Anything, testKey).Return(nil).Once()
		f.publisher.On("PublishBookFinished", mock.Anything, mock.MatchedBy(func(e models.BookFinishedEvent) bool {
			return e.BookID == 7 && e.UserUID == testUID && e.FinishedAt.Equal(finished) && e.EventID != ""
		})).Return(errors.New("broker down")).Once()

		res, err := f.svc.Add(context.Background(), testUID, in)
		require.NoError(t, err, "publish failures must not fail the add")
		assert.Equal(t, int64(7), res.Book.ID)
		f.assertExpectations(t)
	})

	t.Run("restores a soft-deleted title", func(t *testing.T) {
		f := newFixture()
		deleted := &models.Book{ID: 3, UserUID: testUID, Title: "Dune", DeletedAt: ptr(finished)}
		f.repo.On("GetBookByTitle", mock.Anything, testUID, "Dune").Return(deleted, nil).Once()
		f.repo.On("RestoreBook", mock.Anything, testUID, int64(3)).Return(nil).Once()
		f.cache.On("Invalidate", mock.Anything, testKey).Return(nil).Once()

		res, err := f.svc.Add(context.Background(), testUID, models.BookInput{Title: "Dune", Author: "X"})
		require.NoError(t, err)
		assert.True(t, res.Restored)
		assert.Equal(t, int64(3), res.Book.ID)
		assert.Nil(t, res.Book.DeletedAt)
		f.assertExpectations(t)
	})

	t.Run("rejects a live duplicate", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBookByTitle", mock.Anything, testUID, "Dune").
			Return(&models.Book{ID: 3, UserUID: testUID, Title: "Dune"}, nil).Once()

		_, err := f.svc.Add(context.Background(), testUID, models.BookInput{Title: "Dune", Author: "X"})
		assert.ErrorIs(t, err, storage.ErrBookExists)
		f.assertExpectations(t)
	})

	t.Run("lookup error", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetBookByTitle", mock.Anything, testUID, "Dune").Return(nil, errors.New("db error")).Once()

		_, err := f.svc.Add(context.Background(), testUID, models.BookInput{Title: "Dune", Author: "X"})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrBookExists)
		f.assertExpectations(t)
	})
}

func TestService_Update(t *testing.T) {
	finished := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		current     *models.Book
		getErr      error
		in          models.BookInput
		wantPublish bool
		wantErr     error
	}{
		{
			name:        "finishing a book publishes",
			current:     &models.Book{ID: 5, UserUID: testUID, Title: "Dune"},
			in:          models.BookInput{Title: "Dune", Author: "X", FinishedAt: &finished},
			wantPublish: true,
		},
		{
			name:    "already finished does not publish again",
			current: &models.Book{ID: 5, UserUID: testUID, Title: "Dune", FinishedAt: &finished},
			in:      models.BookInput{Title: "Dune", Author: "X", FinishedAt: &finished},
		},
		{
			name:    "unfinished edit does not publish",
			current: &models.Book{ID: 5, UserUID: testUID, Title: "Dune"},
			in:      models.BookInput{Title: "Dune", Author: "Y"},
		},
		{
			name:    "unknown book",
			getErr:  storage.ErrBookNotFound,
			in:      models.BookInput{Title: "Dune", Author: "X"},
			wantErr: storage.ErrBookNotFound,
		},
		{
			name:    "deleted book",
			current: &models.Book{ID: 5, UserUID: testUID, Title: "Dune", DeletedAt: &finished},
			in:      models.BookInput{Title: "Dune", Author: "X"},
			wantErr: storage.ErrBookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("GetBook", mock.Anything, testUID, int64(5)).Return(tt.current, tt.getErr).Once()
			if tt.wantErr == nil {
				want := tt.in.ToBook(testUID)
				want.ID = 5
				updated := want
				f.repo.On("UpdateBook", mock.Anything, want).Return(&updated, nil).Once()
				f.cache.On("Invalidate", mock.Anything, testKey).Return(nil).Once()
			}
			if tt.wantPublish {
				f.publisher.On("PublishBookFinished", mock.Anything, mock.MatchedBy(func(e models.BookFinishedEvent) bool {
					return e.BookID == 5
				})).Return(nil).Once()
			}

			got, err := f.svc.Update(context.Background(), testUID, 5, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.in.Author, got.Author)
			}
			f.assertExpectations(t)
		})
	}
}

func TestService_UpdateDuplicateTitle(t *testing.T) {
	f := newFixture()
	f.repo.On("GetBook", mock.Anything, testUID, int64(5)).Return(&models.Book{ID: 5, Title: "Dune"}, nil).Once()
	f.repo.On("UpdateBook", mock.Anything, mock.Anything).Return(nil, storage.ErrBookExists).Once()

	_, err := f.svc.Update(context.Background(), testUID, 5, models.BookInput{Title: "Emma", Author: "Austen"})
	assert.ErrorIs(t, err, storage.ErrBookExists)
	f.assertExpectations(t)
}

func TestService_RemoveAndRestore(t *testing.T) {
	t.Run("remove stamps the current time", func(t *testing.T) {
		f := newFixture()
		f.repo.On("SoftDeleteBook", mock.Anything, testUID, int64(9), f.now).Return(nil).Once()
		f.cache.On("Invalidate", mock.Anything, testKey).Return(nil).Once()

		require.NoError(t, f.svc.Remove(context.Background(), testUID, 9))
		f.assertExpectations(t)
	})

	t.Run("remove of a missing book", func(t *testing.T) {
		f := newFixture()
		f.repo.On("SoftDeleteBook", mock.Anything, testUID, int64(9), f.now).Return(storage.ErrBookNotFound).Once()

		err := f.svc.Remove(context.Background(), testUID, 9)
		assert.ErrorIs(t, err, storage.ErrBookNotFound)
		f.assertExpectations(t)
	})

	t.Run("restore invalidates the cache even when it errors", func(t *testing.T) {
		f := newFixture()
		f.repo.On("RestoreBook", mock.Anything, testUID, int64(9)).Return(nil).Once()
		f.cache.On("Invalidate", mock.Anything, testKey).Return(errors.New("redis down")).Once()

		require.NoError(t, f.svc.Restore(context.Background(), testUID, 9))
		f.assertExpectations(t)
	})
}

func TestService_RecentlyDeleted(t *testing.T) {
	f := newFixture()
	since := f.now.Add(-30 * 24 * time.Hour)
	f.repo.On("ListDeletedBooks", mock.Anything, testUID, since).Return(nil, nil).Once()

	got, err := f.svc.RecentlyDeleted(context.Background(), testUID)
	require.NoError(t, err)
	assert.Equal(t, []models.Book{}, got)
	f.assertExpectations(t)
}

type blockingRepo struct {
	Repository
	calls   atomic.Int32
	release chan struct{}
}

func (r *blockingRepo) ListBooks(ctx context.Context, _ string) ([]models.Book, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
		return []models.Book{{ID: 1, Title: "Dune"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type missCache struct{}

func (missCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (missCache) Version(context.Context, string) (int64, error) { return 0, nil }
func (missCache) Invalidate(context.Context, string) error       { return nil }
func (missCache) SetIfVersion(context.Context, string, any, time.Duration, int64) (bool, error) {
	return true, nil
}

func TestService_Collection_ConcurrentMissesShareLoad(t *testing.T) {
	const workers = 10
	repo := &blockingRepo{release: make(chan struct{})}
	svc := NewService(repo, missCache{}, nil, newNoopLogger(), testTTL)

	var wg sync.WaitGroup
	results := make([][]models.Book, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := svc.Collection(context.Background(), testUID)
			assert.NoError(t, err)
			results[i] = books
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	assert.Less(t, repo.calls.Load(), int32(workers))
	for _, books := range results {
		require.Len(t, books, 1)
		assert.Equal(t, "Dune", books[0].Title)
	}
}

func TestService_Collection_CancelledCallerDoesNotFailOthers(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	svc := NewService(repo, missCache{}, nil, newNoopLogger(), testTTL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Collection(firstCtx, testUID)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		books []models.Book
		err   error
	}
	second := make(chan result, 1)
	go func() {
		books, err := svc.Collection(context.Background(), testUID)
		second <- result{books, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(repo.release)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.books, 1)
	assert.Equal(t, "Dune", res.books[0].Title)
}

// snapshotRepo holds books in memory. The first ListBooks takes its snapshot
// and then waits for release.
type snapshotRepo struct {
	Repository
	mu       sync.Mutex
	books    []models.Book
	first    atomic.Bool
	snapshot chan struct{}
	release  chan struct{}
}

func (r *snapshotRepo) ListBooks(context.Context, string) ([]models.Book, error) {
	r.mu.Lock()
	books := append([]models.Book(nil), r.books...)
	r.mu.Unlock()

	if r.first.CompareAndSwap(false, true) {
		close(r.snapshot)
		<-r.release
	}
	return books, nil
}

func (r *snapshotRepo) SoftDeleteBook(_ context.Context, _ string, id int64, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.books {
		if b.ID == id {
			r.books = append(r.books[:i], r.books[i+1:]...)
			return nil
		}
	}
	return storage.ErrBookNotFound
}

func TestService_Collection_RemoveDuringLoadIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	repo := &snapshotRepo{
		books:    []models.Book{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Emma"}},
		snapshot: make(chan struct{}),
		release:  make(chan struct{}),
	}
	svc := NewService(repo, c, nil, newNoopLogger(), testTTL)
	ctx := context.Background()

	loaded := make(chan error, 1)
	go func() {
		_, err := svc.Collection(ctx, testUID)
		loaded <- err
	}()
	<-repo.snapshot

	require.NoError(t, svc.Remove(ctx, testUID, 1))
	close(repo.release)
	require.NoError(t, <-loaded)

	got, err := svc.Collection(ctx, testUID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	var cached []models.Book
	found, err := c.Get(ctx, testKey, &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, got, cached)
}
