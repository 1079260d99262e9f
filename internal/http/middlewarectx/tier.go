package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
)

// TierResolver reports the subscription tier of a user.
type TierResolver interface {
	Tier(ctx context.Context, userUID string) (string, error)
}

// SubscriptionTierMiddleware stores the user's tier in the context.
func SubscriptionTierMiddleware(log *slog.Logger, subService TierResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID := UserUIDFrom(r.Context())
			if userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			tier, err := subService.Tier(r.Context(), userUID)
			if err != nil {
				log.Error("failed to get subscription tier", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			ctx := context.WithValue(r.Context(), Tier, tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
