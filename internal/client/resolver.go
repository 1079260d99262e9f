package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

// State is the outcome of subscription resolution.
type State string

// Resolver states.
const (
	StateLoading State = "loading"
	StateFree    State = "free"
	StatePremium State = "premium"
	StateError   State = "error"
)

// Defaults of the post-checkout retry loop.
const (
	DefaultActivationAttempts = 5
	DefaultActivationDelay    = 2 * time.Second
)

// ErrNotActivated is returned when a paid subscription was not confirmed
// within the retry budget.
var ErrNotActivated = errors.New("subscription not activated")

// StatusAPI is the part of the API the Resolver needs.
type StatusAPI interface {
	SubscriptionStatus(ctx context.Context) (string, error)
}

// Resolver determines the subscription tier of the current user.
type Resolver struct {
	api      StatusAPI
	attempts int
	delay    time.Duration

	mu          sync.Mutex
	state       State
	subscribers []chan State
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetry overrides the attempt count and the delay between attempts used
// after a checkout redirect.
func WithRetry(attempts int, delay time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.attempts = max(attempts, 1)
		r.delay = delay
	}
}

// NewResolver creates a Resolver in the loading state.
func NewResolver(api StatusAPI, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:      api,
		attempts: DefaultActivationAttempts,
		delay:    DefaultActivationDelay,
		state:    StateLoading,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe returns a channel receiving every state the Resolver settles in.
// The channel is buffered; a subscriber that falls behind misses
// intermediate states but never blocks resolution.
func (r *Resolver) Subscribe() <-chan State {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan State, 4)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Resolve runs one resolution. Unauthenticated users are free. After a
// checkout redirect the status is polled until it turns active or the
// attempts run out; cancelling ctx stops the loop with the error state.
func (r *Resolver) Resolve(ctx context.Context, authenticated, paymentRedirect bool) (State, error) {
	const op = "client.Resolver.Resolve"

	if !authenticated {
		return r.set(StateFree), nil
	}
	r.set(StateLoading)

	if !paymentRedirect {
		status, err := r.api.SubscriptionStatus(ctx)
		if err != nil {
			return r.set(StateError), fmt.Errorf("%s: %w", op, err)
		}
		return r.set(tierState(status)), nil
	}

	var lastErr error
	check := func() error {
		status, err := r.api.SubscriptionStatus(ctx)
		if err != nil {
			lastErr = err
			return err
		}
		if status != models.SubscriptionActive {
			lastErr = fmt.Errorf("%w: status %q", ErrNotActivated, status)
			return lastErr
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.attempts-1)), ctx)
	if err := backoff.Retry(check, b); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.set(StateError), fmt.Errorf("%s: %w", op, ctxErr)
		}
		if lastErr == nil {
			lastErr = err
		}
		return r.set(StateError), fmt.Errorf("%s: %w", op, lastErr)
	}
	return r.set(StatePremium), nil
}

// Premium reports whether the resolved state unlocks premium features.
// The error state falls back to free.
func (r *Resolver) Premium() bool {
	return r.State() == StatePremium
}

func (r *Resolver) set(s State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	for _, ch := range r.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
	return s
}

func tierState(status string) State {
	if models.Tier(status) == models.TierPremium {
		return StatePremium
	}
	return StateFree
}
