// Package bookcollection wires the HTTP API of the book collection service.
package bookcollection

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/add"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/collection"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/deleted"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/remove"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/restore"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/books/update"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/checkout/portal"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/checkout/session"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/checkout/status"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/checkout/webhook"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/health"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/stats"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/user/goalhistory"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/user/goalprogress"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/user/goalstats"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/user/readinggoal"
	"github.com/magabrotheeeer/book-collection/internal/http/handlers/user/streaksettings"
	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
)

// BookService is the book API surface.
type BookService interface {
	collection.Service
	deleted.Service
	add.Service
	update.Service
	remove.Service
	restore.Service
}

// UserService is the account API surface.
type UserService interface {
	middlewarectx.UserEnsurer
	readinggoal.Service
	streaksettings.Service
	goalhistory.Service
	goalprogress.Service
	goalstats.Service
}

// SubscriptionService is the billing API surface.
type SubscriptionService interface {
	middlewarectx.TierResolver
	session.Service
	portal.Service
	status.Service
	webhook.Service
}

// Deps holds everything the router needs.
type Deps struct {
	Verifier       middlewarectx.TokenVerifier
	Limiter        *middlewarectx.RateLimiter
	Registry       *prometheus.Registry
	Health         health.Checker
	Books          BookService
	Users          UserService
	Stats          stats.Service
	Subscriptions  SubscriptionService
	AllowedOrigins []string
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	metrics := middlewarectx.NewMetrics(deps.Registry)

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", middlewarectx.TimeZoneHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// Stripe signs the webhook itself
		r.Post("/checkout/webhook", webhook.New(logger, deps.Subscriptions).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Verifier, logger))
			r.Use(middlewarectx.EnsureUserMiddleware(logger, deps.Users))
			r.Use(middlewarectx.RateLimitMiddleware(logger, deps.Limiter))

			r.Route("/books", func(r chi.Router) {
				r.Get("/collection", collection.New(logger, deps.Books).ServeHTTP)
				r.Get("/recently-deleted", deleted.New(logger, deps.Books).ServeHTTP)
				r.Post("/add", add.New(logger, deps.Books).ServeHTTP)
				r.Patch("/{id}", update.New(logger, deps.Books).ServeHTTP)
				r.Delete("/{id}", remove.New(logger, deps.Books).ServeHTTP)
				r.Put("/{id}/restore", restore.New(logger, deps.Books).ServeHTTP)

				r.With(middlewarectx.SubscriptionTierMiddleware(logger, deps.Subscriptions)).
					Get("/stats", stats.New(logger, deps.Stats).ServeHTTP)
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/reading-goal", readinggoal.NewGet(logger, deps.Users).ServeHTTP)
				r.Put("/reading-goal", readinggoal.NewUpdate(logger, deps.Users).ServeHTTP)
				r.Get("/goal-progress", goalprogress.New(logger, deps.Users).ServeHTTP)
				r.Get("/streak-settings", streaksettings.NewGet(logger, deps.Users).ServeHTTP)
				r.Post("/streak-settings", streaksettings.NewUpdate(logger, deps.Users).ServeHTTP)
				r.Post("/goal-history", goalhistory.New(logger, deps.Users).ServeHTTP)
				r.Get("/goal-stats", goalstats.New(logger, deps.Users).ServeHTTP)
			})

			r.Post("/checkout/session", session.New(logger, deps.Subscriptions).ServeHTTP)
			r.Post("/checkout/portal-session", portal.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/checkout/subscription-status", status.New(logger, deps.Subscriptions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
