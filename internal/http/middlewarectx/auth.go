// Package middlewarectx holds the HTTP middleware that authenticates
// requests and stores per-request values in the context.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/jwt"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// Key is the type of context keys set by this package.
type Key string

const (
	// UserUID holds the token subject.
	UserUID Key = "user_uid"
	// Email holds the token email claim, possibly empty.
	Email Key = "email"
	// Tier holds the subscription tier of the user.
	Tier Key = "tier"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	ParseToken(tokenStr string) (*jwt.Claims, error)
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// subject and email of valid ones in the context.
func JWTMiddleware(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := verifier.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, claims.Subject)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserUIDFrom returns the authenticated user uid, or "" outside JWTMiddleware.
func UserUIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(UserUID).(string)
	return uid
}

// EmailFrom returns the authenticated user's email claim.
func EmailFrom(ctx context.Context) string {
	email, _ := ctx.Value(Email).(string)
	return email
}

// TierFrom returns the tier stored by SubscriptionTierMiddleware, defaulting
// to the free tier.
func TierFrom(ctx context.Context) string {
	tier, _ := ctx.Value(Tier).(string)
	if tier == "" {
		return models.TierFree
	}
	return tier
}
