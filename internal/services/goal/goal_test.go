package goal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

const testUID = "auth0|reader"

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, auth0ID string) (*models.User, error) {
	args := m.Called(ctx, auth0ID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *RepoMock) GetStreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error) {
	args := m.Called(ctx, auth0ID)
	s, _ := args.Get(0).(*models.StreakSettings)
	return s, args.Error(1)
}

func (m *RepoMock) ListBooks(ctx context.Context, userUID string) ([]models.Book, error) {
	args := m.Called(ctx, userUID)
	b, _ := args.Get(0).([]models.Book)
	return b, args.Error(1)
}

func (m *RepoMock) CreateGoalHistory(ctx context.Context, h models.GoalHistory) (*models.GoalHistory, error) {
	args := m.Called(ctx, h)
	if fn, ok := args.Get(0).(func(models.GoalHistory) *models.GoalHistory); ok {
		return fn(h), args.Error(1)
	}
	out, _ := args.Get(0).(*models.GoalHistory)
	return out, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func finishedOn(d time.Time) models.Book {
	return models.Book{Title: d.String(), FinishedAt: &d}
}

func echoHistory(m *RepoMock, check func(h models.GoalHistory) bool) {
	m.On("CreateGoalHistory", mock.Anything, mock.MatchedBy(check)).
		Return(func(h models.GoalHistory) *models.GoalHistory { return &h }, nil).Once()
}

func TestRecorder_Record(t *testing.T) {
	finished := time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)
	books := []models.Book{
		finishedOn(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)),
		finishedOn(finished),
		finishedOn(time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)),
	}
	event := models.BookFinishedEvent{EventID: "e1", UserUID: testUID, BookID: 1, FinishedAt: finished}

	tests := []struct {
		name         string
		settings     *models.StreakSettings
		settingsErr  error
		goal         int
		wantInterval string
		wantAchieved int
		wantDone     bool
	}{
		{
			name:         "monthly interval from settings",
			settings:     &models.StreakSettings{GoalInterval: models.IntervalMonthly},
			goal:         2,
			wantInterval: models.IntervalMonthly,
			wantAchieved: 2,
			wantDone:     true,
		},
		{
			name:         "missing settings default to yearly",
			settingsErr:  storage.ErrSettingsNotFound,
			goal:         5,
			wantInterval: models.IntervalYearly,
			wantAchieved: 3,
			wantDone:     false,
		},
		{
			name:         "weekly interval",
			settings:     &models.StreakSettings{GoalInterval: models.IntervalWeekly},
			goal:         1,
			wantInterval: models.IntervalWeekly,
			wantAchieved: 1,
			wantDone:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("GetStreakSettings", mock.Anything, testUID).Return(tt.settings, tt.settingsErr).Once()
			repo.On("GetUser", mock.Anything, testUID).Return(&models.User{Auth0ID: testUID, ReadingGoal: tt.goal}, nil).Once()
			repo.On("ListBooks", mock.Anything, testUID).Return(books, nil).Once()
			echoHistory(repo, func(h models.GoalHistory) bool {
				return h.UserUID == testUID && h.Interval == tt.wantInterval && h.Target == tt.goal
			})

			got, err := NewRecorder(repo, newNoopLogger()).Record(context.Background(), event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAchieved, got.Achieved)
			assert.Equal(t, tt.wantDone, got.WasCompleted)
			repo.AssertExpectations(t)
		})
	}
}

func TestRecorder_RecordErrors(t *testing.T) {
	event := models.BookFinishedEvent{UserUID: testUID, FinishedAt: time.Now()}

	t.Run("settings error", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetStreakSettings", mock.Anything, testUID).Return(nil, errors.New("db error")).Once()

		_, err := NewRecorder(repo, newNoopLogger()).Record(context.Background(), event)
		assert.Error(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetStreakSettings", mock.Anything, testUID).Return(nil, storage.ErrSettingsNotFound).Once()
		repo.On("GetUser", mock.Anything, testUID).Return(nil, storage.ErrUserNotFound).Once()

		_, err := NewRecorder(repo, newNoopLogger()).Record(context.Background(), event)
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
		repo.AssertExpectations(t)
	})
}

func TestRecorder_HandleMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		setup   func(m *RepoMock)
		wantErr bool
	}{
		{
			name:  "malformed json is dropped",
			body:  `{not json`,
			setup: func(_ *RepoMock) {},
		},
		{
			name:  "missing user is dropped",
			body:  `{"event_id":"e1","book_id":1,"finished_at":"2024-06-12T18:00:00Z"}`,
			setup: func(_ *RepoMock) {},
		},
		{
			name: "unknown user is dropped",
			body: `{"event_id":"e1","user_uid":"auth0|reader","book_id":1,"finished_at":"2024-06-12T18:00:00Z"}`,
			setup: func(m *RepoMock) {
				m.On("GetStreakSettings", mock.Anything, testUID).Return(nil, storage.ErrSettingsNotFound).Once()
				m.On("GetUser", mock.Anything, testUID).Return(nil, storage.ErrUserNotFound).Once()
			},
		},
		{
			name: "storage failure is retried",
			body: `{"event_id":"e1","user_uid":"auth0|reader","book_id":1,"finished_at":"2024-06-12T18:00:00Z"}`,
			setup: func(m *RepoMock) {
				m.On("GetStreakSettings", mock.Anything, testUID).Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name: "valid event is recorded",
			body: `{"event_id":"e1","user_uid":"auth0|reader","book_id":1,"finished_at":"2024-06-12T18:00:00Z"}`,
			setup: func(m *RepoMock) {
				m.On("GetStreakSettings", mock.Anything, testUID).Return(nil, storage.ErrSettingsNotFound).Once()
				m.On("GetUser", mock.Anything, testUID).Return(&models.User{ReadingGoal: 1}, nil).Once()
				m.On("ListBooks", mock.Anything, testUID).Return([]models.Book{}, nil).Once()
				echoHistory(m, func(h models.GoalHistory) bool { return h.Interval == models.IntervalYearly })
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)

			err := NewRecorder(repo, newNoopLogger()).HandleMessage(context.Background(), []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestRecorder_PublishBookFinished(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetStreakSettings", mock.Anything, testUID).Return(nil, storage.ErrSettingsNotFound).Once()
	repo.On("GetUser", mock.Anything, testUID).Return(&models.User{}, nil).Once()
	repo.On("ListBooks", mock.Anything, testUID).Return([]models.Book{}, nil).Once()
	echoHistory(repo, func(h models.GoalHistory) bool { return h.Target == 0 && h.WasCompleted })

	err := NewRecorder(repo, newNoopLogger()).PublishBookFinished(context.Background(),
		models.BookFinishedEvent{UserUID: testUID, FinishedAt: time.Now()})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
