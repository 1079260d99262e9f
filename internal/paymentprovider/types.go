package paymentprovider

import "time"

// Webhook event types handled by the subscription service.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// MetadataUserUID is the customer metadata key holding the user uid.
const MetadataUserUID = "auth0_id"

// Event is a verified webhook event. Subscription is set for
// customer.subscription.* events only.
type Event struct {
	ID           string
	Type         string
	Subscription *Subscription
}

// Subscription is the part of a Stripe subscription the service stores.
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd time.Time
}
