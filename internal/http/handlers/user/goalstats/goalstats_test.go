package goalstats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GoalStats(ctx context.Context, auth0ID string) (models.GoalStats, error) {
	args := m.Called(ctx, auth0ID)
	return args.Get(0).(models.GoalStats), args.Error(1)
}

func TestGoalStatsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "empty history",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("GoalStats", mock.Anything, "auth0|1").Return(models.GoalStats{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"current_goal_streak":0,"longest_goal_streak":0,"total_goals_set":0,
				"total_goals_met":0,"goal_completion_rate":0,"average_overshoot":0,"best_interval":"","last_goal_met":null}}`,
		},
		{
			name:    "with history",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("GoalStats", mock.Anything, "auth0|1").Return(models.GoalStats{
					CurrentGoalStreak:  2,
					LongestGoalStreak:  3,
					TotalGoalsSet:      5,
					TotalGoalsMet:      4,
					GoalCompletionRate: 80,
					BestInterval:       models.IntervalMonthly,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"current_goal_streak":2,"longest_goal_streak":3,"total_goals_set":5,
				"total_goals_met":4,"goal_completion_rate":80,"average_overshoot":0,"best_interval":"monthly","last_goal_met":null}}`,
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
				m.On("GoalStats", mock.Anything, "auth0|1").Return(models.GoalStats{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not compute goal statistics"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/user/goal-stats", nil)
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
