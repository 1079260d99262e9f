package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/book-collection/internal/config"
)

// ErrMissingSubject is returned for a valid token without a sub claim.
var ErrMissingSubject = errors.New("token has no subject")

// Verifier checks signature, expiry, issuer and audience of a token.
type Verifier struct {
	method   jwt.SigningMethod
	key      any
	issuer   string
	audience string
}

// NewHS256 returns a Verifier for tokens signed with a shared secret.
func NewHS256(secret, issuer, audience string) *Verifier {
	return &Verifier{
		method:   jwt.SigningMethodHS256,
		key:      []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// NewRS256 returns a Verifier for tokens signed by the private key paired with key.
func NewRS256(key *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		method:   jwt.SigningMethodRS256,
		key:      key,
		issuer:   issuer,
		audience: audience,
	}
}

// FromConfig picks RS256 when a public key path is set and HS256 otherwise.
func FromConfig(cfg config.Auth) (*Verifier, error) {
	const op = "jwt.FromConfig"

	if cfg.PublicKeyPath == "" {
		if cfg.JWTSecretKey == "" {
			return nil, fmt.Errorf("%s: neither public key nor secret configured", op)
		}
		return NewHS256(cfg.JWTSecretKey, cfg.Issuer, cfg.Audience), nil
	}

	pem, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewRS256(key, cfg.Issuer, cfg.Audience), nil
}

// ParseToken validates tokenStr and returns its claims.
func (v *Verifier) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	return claims, nil
}
