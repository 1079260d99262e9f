package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// UserEnsurer creates the user row on first use.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error)
}

// EnsureUserMiddleware makes sure the authenticated user exists in storage.
// It must run after JWTMiddleware.
func EnsureUserMiddleware(log *slog.Logger, users UserEnsurer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID := UserUIDFrom(r.Context())
			if userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			if _, err := users.EnsureUser(r.Context(), userUID, EmailFrom(r.Context())); err != nil {
				log.Error("failed to ensure user", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
