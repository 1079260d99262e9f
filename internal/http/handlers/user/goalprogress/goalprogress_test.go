package goalprogress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GoalProgress(ctx context.Context, auth0ID string) (models.GoalProgress, error) {
	args := m.Called(ctx, auth0ID)
	return args.Get(0).(models.GoalProgress), args.Error(1)
}

func TestGoalProgressHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	progress := models.GoalProgress{
		Interval:        models.IntervalMonthly,
		Target:          4,
		BooksRead:       1,
		PercentComplete: 25,
		StartDate:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "returns progress",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("GoalProgress", mock.Anything, "auth0|1").Return(progress, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"interval":"monthly","target":4,"books_read":1,"percent_complete":25,
				"start_date":"2024-06-01T00:00:00Z","end_date":"2024-07-01T00:00:00Z"}}`,
		},
		{
			name:           "no user",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "service error",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("GoalProgress", mock.Anything, "auth0|1").Return(models.GoalProgress{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not compute goal progress"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/user/goal-progress", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rr := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
