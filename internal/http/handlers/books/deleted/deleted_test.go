package deleted

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

func (m *MockService) RecentlyDeleted(ctx context.Context, userUID string) ([]models.Book, error) {
	args := m.Called(ctx, userUID)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func TestDeletedHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	deletedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   []string
	}{
		{
			name:    "lists deleted books",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("RecentlyDeleted", mock.Anything, "auth0|1").
					Return([]models.Book{{ID: 7, Title: "Dune", Author: "Frank Herbert", DeletedAt: &deletedAt}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"count":1`, `"title":"Dune"`, `"deleted_at":"2024-03-01T10:00:00Z"`},
		},
		{
			name:    "empty list",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("RecentlyDeleted", mock.Anything, "auth0|1").Return([]models.Book{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"count":0`, `"books":[]`},
		},
		{
			name:           "no user",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   []string{`{"status":"Error","error":"unauthorized"}`},
		},
		{
			name:    "service error",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("RecentlyDeleted", mock.Anything, "auth0|1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   []string{`"error":"could not load deleted books"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/books/recently-deleted", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rr := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			for _, want := range tt.expectedBody {
				assert.Contains(t, rr.Body.String(), want)
			}
			mockService.AssertExpectations(t)
		})
	}
}
