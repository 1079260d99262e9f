package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker mints HS256 tokens accepted by a Verifier built from the same
// secret, issuer and audience.
type Maker struct {
	secretKey string
	issuer    string
	audience  string
	tokenTTL  time.Duration
}

// NewMaker creates a Maker.
func NewMaker(secretKey, issuer, audience string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: secretKey,
		issuer:    issuer,
		audience:  audience,
		tokenTTL:  ttl,
	}
}

// GenerateToken signs a token for subject with an optional email claim.
func (m *Maker) GenerateToken(subject, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}
