// Package jwt verifies bearer tokens issued by the identity provider and
// mints HS256 tokens for local development and tests.
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields the API relies on. Subject is the user uid.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
