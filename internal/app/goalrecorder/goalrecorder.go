// Package goalrecorder runs the consumer that turns book.finished events
// into goal-history rows.
package goalrecorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/book-collection/internal/config"
	"github.com/magabrotheeeer/book-collection/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/services/goal"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// App is the goal-recorder process.
type App struct {
	recorder *goal.Recorder
	db       *storage.Storage
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	logger   *slog.Logger
}

// New connects to RabbitMQ and the database.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, errors.New("rabbitmq url is not configured")
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GoalQueues(cfg.Queue))
	if err != nil {
		closeResources(nil, conn, nil, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, nil, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := db.WaitReady(ctx, dbReadyAttempts, dbReadyDelay); err != nil {
		closeResources(ch, conn, db, logger)
		return nil, err
	}

	return &App{
		recorder: goal.NewRecorder(db, logger),
		db:       db,
		conn:     conn,
		ch:       ch,
		queue:    cfg.Queue,
		logger:   logger,
	}, nil
}

// Run consumes events until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, a.queue, a.recorder.HandleMessage); err != nil {
		closeResources(a.ch, a.conn, a.db, a.logger)
		return err
	}
	a.logger.Info("goal recorder consuming", slog.String("queue", a.queue))

	<-ctx.Done()

	a.logger.Info("shutting down goal recorder")
	closeResources(a.ch, a.conn, a.db, a.logger)
	return nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, db *storage.Storage, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
