package models

import "time"

// Subscription statuses stored for a user. Stripe statuses are kept verbatim.
const (
	SubscriptionFree              = "free"
	SubscriptionActive            = "active"
	SubscriptionPastDue           = "past_due"
	SubscriptionCanceled          = "canceled"
	SubscriptionIncomplete        = "incomplete"
	SubscriptionIncompleteExpired = "incomplete_expired"
)

// Subscription is the billing state of a user.
type Subscription struct {
	ID               string    `json:"id"`
	UserUID          string    `json:"user_uid"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsActive reports whether the subscription grants premium access at now.
func (s Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && s.CurrentPeriodEnd.After(now)
}

// StatusPriority orders Stripe statuses so that a late webhook cannot
// downgrade a better state. Unknown statuses rank lowest.
func StatusPriority(status string) int {
	switch status {
	case SubscriptionActive:
		return 2
	case SubscriptionPastDue, SubscriptionCanceled:
		return 1
	default:
		return 0
	}
}

// Tiers derived from the subscription status.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Tier maps an access status to a tier.
func Tier(status string) string {
	if status == SubscriptionActive {
		return TierPremium
	}
	return TierFree
}
