package collection

import (
	"context"
	"fmt"
	"math"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/book-collection/internal/filter"
	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Collection(ctx context.Context, userUID string) ([]models.Book, error) {
	args := m.Called(ctx, userUID)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func fixture() []models.Book {
	return []models.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Rating: ptr(5.0), PageCount: ptr(612)},
		{ID: 2, Title: "Emma", Author: "Jane Austen", Genre: "Romance", Rating: ptr(3.5), PageCount: ptr(474)},
		{ID: 3, Title: "Hyperion", Author: "Dan Simmons", Genre: "Science Fiction", Rating: ptr(4.0)},
		{ID: 4, Title: "Sapiens", Author: "Yuval Noah Harari", Genre: "History", PageCount: ptr(443)},
	}
}

type body struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   struct {
		Books []struct {
			ID int64 `json:"id"`
		} `json:"books"`
		Total            int `json:"total"`
		Page             int `json:"page"`
		PageSize         int `json:"page_size"`
		TotalPages       int `json:"total_pages"`
		PageCountCeiling int `json:"page_count_ceiling"`
	} `json:"data"`
}

func TestCollectionHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		query          string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedIDs    []int64
		expectedTotal  int
		expectedSize   int
		expectedError  string
	}{
		{
			name:    "no filters",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{1, 2, 3, 4},
			expectedTotal:  4,
		},
		{
			name:    "genre and rating",
			query:   "?genre=Science+Fiction&genre=History&min_rating=4.5",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{1},
			expectedTotal:  1,
		},
		{
			name:    "search and page range",
			query:   "?q=an&max_pages=500",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{2, 3},
			expectedTotal:  2,
		},
		{
			name:    "second page",
			query:   "?page=2&page_size=3",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{4},
			expectedTotal:  4,
		},
		{
			name:    "page far past the end",
			query:   fmt.Sprintf("?page=%d&page_size=2", math.MaxInt),
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
			expectedTotal:  4,
			expectedSize:   2,
		},
		{
			name:    "page size is clamped",
			query:   fmt.Sprintf("?page=%d&page_size=%d", math.MaxInt, math.MaxInt),
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(fixture(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedIDs:    []int64{},
			expectedTotal:  4,
			expectedSize:   filter.MaxPageSize,
		},
		{
			name:           "malformed number",
			query:          "?min_pages=abc",
			userUID:        "auth0|1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid query parameters",
		},
		{
			name:           "no user",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:    "service error",
			userUID: "auth0|1",
			setupMock: func(m *MockService) {
				m.On("Collection", mock.Anything, "auth0|1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "could not load books",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/books"+tt.query, nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rr := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			var got body
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			if tt.expectedError != "" {
				assert.Equal(t, "Error", got.Status)
				assert.Equal(t, tt.expectedError, got.Error)
			} else {
				ids := make([]int64, 0, len(got.Data.Books))
				for _, b := range got.Data.Books {
					ids = append(ids, b.ID)
				}
				assert.Equal(t, tt.expectedIDs, ids)
				assert.Equal(t, tt.expectedTotal, got.Data.Total)
				assert.Equal(t, 2000, got.Data.PageCountCeiling)
				if tt.expectedSize != 0 {
					assert.Equal(t, tt.expectedSize, got.Data.PageSize)
				}
			}
			mockService.AssertExpectations(t)
		})
	}
}
