// Package subscription resolves premium access and drives Stripe billing.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/paymentprovider"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

var (
	// ErrNoCustomer is returned when a portal session is requested by a user
	// who never went through checkout.
	ErrNoCustomer = errors.New("no billing customer for user")
	// ErrInvalidWebhook is returned for payloads that fail verification.
	ErrInvalidWebhook = errors.New("invalid webhook")
)

// freePeriod is how far ahead the default free row is valid.
const freePeriod = 100

// Repository is the storage used by the service.
type Repository interface {
	GetUser(ctx context.Context, auth0ID string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, auth0ID, customerID string) error
	GetSubscription(ctx context.Context, auth0ID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id, status string) error
}

// PaymentProvider is the billing backend.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, userUID string) (string, error)
	CustomerUserUID(ctx context.Context, customerID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (paymentprovider.Event, error)
}

// Service implements subscription status and billing flows.
type Service struct {
	repo        Repository
	provider    PaymentProvider
	frontendURL string
	log         *slog.Logger
	now         func() time.Time
}

// NewService creates a Service. Checkout and portal pages redirect back to
// frontendURL.
func NewService(repo Repository, provider PaymentProvider, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		provider:    provider,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

// Status returns "active" when the user has a running paid subscription and
// "free" otherwise. Users without a row get a free one.
func (s *Service) Status(ctx context.Context, userUID string) (string, error) {
	const op = "services.subscription.Status"

	if _, err := s.repo.GetUser(ctx, userUID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.SubscriptionFree, nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	sub, err := s.repo.GetSubscription(ctx, userUID)
	switch {
	case errors.Is(err, storage.ErrSubscriptionNotFound):
		free := models.Subscription{
			ID:               fmt.Sprintf("free_%s_%d", userUID, now.Unix()),
			UserUID:          userUID,
			Status:           models.SubscriptionFree,
			CurrentPeriodEnd: now.AddDate(freePeriod, 0, 0),
		}
		if _, err := s.repo.UpsertSubscription(ctx, free); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return models.SubscriptionFree, nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if sub.IsActive(now) {
		return models.SubscriptionActive, nil
	}
	return models.SubscriptionFree, nil
}

// Tier maps the user's status to a tier.
func (s *Service) Tier(ctx context.Context, userUID string) (string, error) {
	status, err := s.Status(ctx, userUID)
	if err != nil {
		return "", err
	}
	return models.Tier(status), nil
}

// CreateCheckoutSession returns the URL of a subscription checkout page.
// The user's billing customer is created on first checkout.
func (s *Service) CreateCheckoutSession(ctx context.Context, userUID, email string) (string, error) {
	const op = "services.subscription.CreateCheckoutSession"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if email == "" {
		email = user.Email
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, email, userUID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if err := s.repo.SetStripeCustomerID(ctx, userUID, customerID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	url, err := s.provider.CreateCheckoutSession(ctx, customerID,
		s.frontendURL+"/stats?payment_status=success",
		s.frontendURL+"/subscription?payment_status=cancelled",
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created", slog.String("customer_id", customerID))
	return url, nil
}

// CreatePortalSession returns the billing portal URL of the user.
func (s *Service) CreatePortalSession(ctx context.Context, userUID string) (string, error) {
	const op = "services.subscription.CreatePortalSession"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		sub, err := s.repo.GetSubscription(ctx, userUID)
		switch {
		case errors.Is(err, storage.ErrSubscriptionNotFound):
		case err != nil:
			return "", fmt.Errorf("%s: %w", op, err)
		default:
			customerID = sub.StripeCustomerID
		}
		if customerID == "" {
			return "", fmt.Errorf("%s: %w", op, ErrNoCustomer)
		}
		if err := s.repo.SetStripeCustomerID(ctx, userUID, customerID); err != nil {
			s.log.Warn("failed to backfill customer id", sl.Err(err))
		}
	}

	url, err := s.provider.CreatePortalSession(ctx, customerID, s.frontendURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

// HandleWebhook verifies a Stripe event and applies it to the stored
// subscription. Unhandled event types are ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "services.subscription.HandleWebhook"

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidWebhook, err)
	}
	log := s.log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case paymentprovider.EventSubscriptionCreated, paymentprovider.EventSubscriptionUpdated:
		if event.Subscription == nil {
			return fmt.Errorf("%s: %w: missing subscription", op, ErrInvalidWebhook)
		}
		if err := s.applySubscription(ctx, log, *event.Subscription); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case paymentprovider.EventSubscriptionDeleted:
		if event.Subscription == nil {
			return fmt.Errorf("%s: %w: missing subscription", op, ErrInvalidWebhook)
		}
		err := s.repo.UpdateSubscriptionStatus(ctx, event.Subscription.ID, models.SubscriptionCanceled)
		if errors.Is(err, storage.ErrSubscriptionNotFound) {
			log.Warn("deleted subscription is unknown", slog.String("subscription_id", event.Subscription.ID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("subscription canceled", slog.String("subscription_id", event.Subscription.ID))
	default:
		log.Debug("ignoring webhook event")
	}
	return nil
}

func (s *Service) applySubscription(ctx context.Context, log *slog.Logger, sub paymentprovider.Subscription) error {
	userUID, err := s.provider.CustomerUserUID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetUser(ctx, userUID); err != nil {
		return err
	}
	if err := s.repo.SetStripeCustomerID(ctx, userUID, sub.CustomerID); err != nil {
		return err
	}

	current, err := s.repo.GetSubscription(ctx, userUID)
	switch {
	case errors.Is(err, storage.ErrSubscriptionNotFound):
	case err != nil:
		return err
	case models.StatusPriority(sub.Status) < models.StatusPriority(current.Status):
		log.Info("keeping higher priority subscription status",
			slog.String("current", current.Status), slog.String("received", sub.Status))
		return nil
	}

	_, err = s.repo.UpsertSubscription(ctx, models.Subscription{
		ID:               sub.ID,
		UserUID:          userUID,
		StripeCustomerID: sub.CustomerID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	})
	if err != nil {
		return err
	}
	log.Info("subscription saved", slog.String("subscription_id", sub.ID), slog.String("status", sub.Status))
	return nil
}
