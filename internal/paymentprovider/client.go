// Package paymentprovider is a thin Stripe client covering customers,
// checkout and billing portal sessions, and webhook verification.
package paymentprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"

	"github.com/magabrotheeeer/book-collection/internal/config"
)

// Client talks to the Stripe API with its own key.
type Client struct {
	api           *client.API
	priceID       string
	webhookSecret string
}

// NewClient creates a Client from the stripe config section.
func NewClient(cfg config.Stripe) *Client {
	return NewClientWithBackends(cfg, nil)
}

// NewClientWithBackends lets tests point the client at a fake API.
func NewClientWithBackends(cfg config.Stripe, backends *stripe.Backends) *Client {
	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateCustomer creates a customer tagged with userUID and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, email, userUID string) (string, error) {
	const op = "paymentprovider.CreateCustomer"

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			MetadataUserUID: userUID,
		},
	}
	params.Context = ctx

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cus.ID, nil
}

// CustomerUserUID returns the user uid stored in the customer's metadata.
func (c *Client) CustomerUserUID(ctx context.Context, customerID string) (string, error) {
	const op = "paymentprovider.CustomerUserUID"

	params := &stripe.CustomerParams{}
	params.Context = ctx

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	uid := cus.Metadata[MetadataUserUID]
	if uid == "" {
		return "", fmt.Errorf("%s: customer %s has no %s metadata", op, customerID, MetadataUserUID)
	}
	return uid, nil
}

// CreateCheckoutSession starts a subscription checkout for the configured
// price and returns the hosted page URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, successURL, cancelURL string) (string, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.URL, nil
}

// CreatePortalSession returns a billing portal URL for customerID.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Events from a different API version are accepted.
func (c *Client) ParseWebhook(payload []byte, signature string) (Event, error) {
	const op = "paymentprovider.ParseWebhook"

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}

	out := Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "customer.subscription.") || event.Data == nil {
		return out, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Subscription = &Subscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		out.Subscription.CustomerID = sub.Customer.ID
	}
	return out, nil
}
