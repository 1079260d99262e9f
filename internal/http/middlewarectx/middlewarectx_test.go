package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/lib/jwt"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

const testSecret = "middleware-secret"

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withUser(r *http.Request, uid string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middlewarectx.UserUID, uid))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewMaker(testSecret, "", "", time.Minute)
	valid, err := maker.GenerateToken("auth0|reader", "reader@example.com")
	require.NoError(t, err)
	expired, err := jwt.NewMaker(testSecret, "", "", -time.Minute).GenerateToken("auth0|reader", "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCalled bool
	}{
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + valid, wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.Equal(t, "auth0|reader", middlewarectx.UserUIDFrom(r.Context()))
				assert.Equal(t, "reader@example.com", middlewarectx.EmailFrom(r.Context()))
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.JWTMiddleware(jwt.NewHS256(testSecret, "", ""), newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/books/collection", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				assert.Contains(t, rr.Body.String(), `"status":"Error"`)
			}
		})
	}
}

type EnsurerMock struct{ mock.Mock }

func (m *EnsurerMock) EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	args := m.Called(ctx, auth0ID, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestEnsureUserMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		uid        string
		setup      func(m *EnsurerMock)
		wantStatus int
	}{
		{name: "no user in context", wantStatus: http.StatusUnauthorized, setup: func(_ *EnsurerMock) {}},
		{
			name: "storage error",
			uid:  "u1",
			setup: func(m *EnsurerMock) {
				m.On("EnsureUser", mock.Anything, "u1", "").Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "user ensured",
			uid:  "u1",
			setup: func(m *EnsurerMock) {
				m.On("EnsureUser", mock.Anything, "u1", "").Return(&models.User{}, nil).Once()
			},
			wantStatus: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(EnsurerMock)
			tt.setup(m)
			h := middlewarectx.EnsureUserMiddleware(newNoopLogger(), m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.uid != "" {
				req = withUser(req, tt.uid)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			m.AssertExpectations(t)
		})
	}
}

type TierMock struct{ mock.Mock }

func (m *TierMock) Tier(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

func TestSubscriptionTierMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		tier       string
		err        error
		wantStatus int
		wantTier   string
	}{
		{name: "premium", tier: models.TierPremium, wantStatus: http.StatusOK, wantTier: models.TierPremium},
		{name: "free", tier: models.TierFree, wantStatus: http.StatusOK, wantTier: models.TierFree},
		{name: "resolver error", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(TierMock)
			m.On("Tier", mock.Anything, "u1").Return(tt.tier, tt.err).Once()

			var gotTier string
			h := middlewarectx.SubscriptionTierMiddleware(newNoopLogger(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTier = middlewarectx.TierFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1"))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantTier, gotTier)
		})
	}
}

func TestTierFrom_DefaultsToFree(t *testing.T) {
	assert.Equal(t, models.TierFree, middlewarectx.TierFrom(context.Background()))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 2)
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(uid string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if uid != "" {
			req = withUser(req, uid)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"))

	assert.Equal(t, http.StatusOK, do("u2"), "buckets are per user")
	assert.Equal(t, http.StatusOK, do(""), "anonymous clients are keyed by ip")
}

func TestRateLimitMiddleware_ResponseFormat(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 1)
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"status":"Error","error":"too many requests"}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middlewarectx.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/api/books/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/books/"+id, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, map[string]string{"method": "GET", "route": "/api/books/{id}", "status": "418"}, labels)
		assert.Equal(t, 2.0, m.GetCounter().GetValue())
		found = true
	}
	assert.True(t, found, "http_requests_total not gathered")
}

func TestTimeZoneMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantLoc    *time.Location
	}{
		{name: "no zone keeps server zone", wantStatus: http.StatusOK, wantLoc: time.Local},
		{name: "header", header: "UTC", wantStatus: http.StatusOK, wantLoc: time.UTC},
		{name: "query parameter", query: "?tz=UTC", wantStatus: http.StatusOK, wantLoc: time.UTC},
		{name: "unknown zone", header: "Mars/Olympus_Mons", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *time.Location
			h := middlewarectx.TimeZoneMiddleware(newNoopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = calendar.LocationFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/books/stats"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(middlewarectx.TimeZoneHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantLoc != nil {
				assert.Equal(t, tt.wantLoc, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
