package bookcollection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/book-collection/internal/cache"
	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/lib/jwt"
	"github.com/magabrotheeeer/book-collection/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/migrations"
	"github.com/magabrotheeeer/book-collection/internal/paymentprovider"
	"github.com/magabrotheeeer/book-collection/internal/services/book"
	"github.com/magabrotheeeer/book-collection/internal/services/goal"
	statsservice "github.com/magabrotheeeer/book-collection/internal/services/stats"
	"github.com/magabrotheeeer/book-collection/internal/services/subscription"
	"github.com/magabrotheeeer/book-collection/internal/services/user"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App is the HTTP API process.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New connects every dependency and builds the router. Without a RabbitMQ
// URL finished books are recorded in goal history inline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	verifier, err := jwt.FromConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	recorder := goal.NewRecorder(db, logger)
	var publisher book.EventPublisher = recorder
	if cfg.RabbitMQ.URL != "" {
		a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, cfg.Exchange, rabbitmq.GoalQueues(cfg.Queue))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher = rabbitmq.NewPublisher(a.ch, cfg.Exchange)
	} else {
		logger.Warn("rabbitmq disabled, recording goal history inline")
	}

	bookService := book.NewService(db, cacheRedis, publisher, logger, cfg.CacheTTL)
	userService := user.NewService(db, logger)
	subscriptionService := subscription.NewService(db, paymentprovider.NewClient(cfg.Stripe), cfg.FrontendURL, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Verifier:       verifier,
		Limiter:        middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst),
		Registry:       registry,
		Health:         db,
		Books:          bookService,
		Users:          userService,
		Stats:          statsservice.NewService(bookService, userService),
		Subscriptions:  subscriptionService,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
