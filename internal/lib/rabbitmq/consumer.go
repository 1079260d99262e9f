package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
)

// Prefetch is both the channel QoS and the number of deliveries handled
// concurrently by a consumer.
const Prefetch = 10

// Handler processes the body of one delivery.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage consumes queueName in the background until ctx is done.
// A failed delivery is requeued once and dropped when it fails again.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	go consume(ctx, log, deliveries, handler)
	return nil
}

// consume dispatches deliveries to at most Prefetch handlers and waits for
// the running ones before it returns.
func consume(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, handler Handler) {
	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, Prefetch)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer func() {
					<-sem
					wg.Done()
				}()
				handle(ctx, log, d, handler)
			}()
		}
	}
}

func handle(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	if err := handler(ctx, d.Body); err != nil {
		requeue := !d.Redelivered
		log.Error("failed to handle message", slog.Bool("requeue", requeue), sl.Err(err))
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
