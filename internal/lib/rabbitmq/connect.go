// Package rabbitmq wraps the AMQP connection, topology, publishing and
// consuming used for book.finished events.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
)

// Connect dials url, making up to retries attempts spaced by delay.
func Connect(ctx context.Context, url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	var conn *amqp.Connection
	dial := func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	attempts := uint64(max(retries, 1))
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), attempts-1), ctx)
	if err := backoff.Retry(dial, b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, nil
}
