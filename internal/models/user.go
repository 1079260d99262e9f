package models

import "time"

// User is an account identified by its Auth0 subject.
type User struct {
	ID               int64     `json:"id"`
	Auth0ID          string    `json:"auth0Id"`
	Email            string    `json:"email"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	ReadingGoal      int       `json:"readingGoal"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ReadingGoalInput is the payload of PUT /api/user/reading-goal.
type ReadingGoalInput struct {
	ReadingGoal *int `json:"readingGoal" validate:"required,min=0,max=100000"`
}
