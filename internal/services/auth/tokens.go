package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "multimodal-analytics"

var (
	ErrSecretNotConfigured = errors.New("JWT secret not configured")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// Claims are the claims carried by issued access tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens and checks the static
// API secret.
type TokenIssuer struct {
	jwtSecret []byte
	apiSecret []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewTokenIssuer creates an issuer. An empty jwtSecret disables tokens; an
// empty apiSecret disables API key checks.
func NewTokenIssuer(jwtSecret, apiSecret string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &TokenIssuer{
		jwtSecret: []byte(jwtSecret),
		apiSecret: []byte(apiSecret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Expiry returns the lifetime of issued tokens.
func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}

// ValidAPIKey reports whether key matches the configured API secret.
func (t *TokenIssuer) ValidAPIKey(key string) bool {
	if len(t.apiSecret) == 0 || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), t.apiSecret) == 1
}

// Issue signs a token for subject.
func (t *TokenIssuer) Issue(subject string) (string, time.Time, error) {
	if len(t.jwtSecret) == 0 {
		return "", time.Time{}, ErrSecretNotConfigured
	}

	now := t.now()
	expiresAt := now.Add(t.expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a signed token.
func (t *TokenIssuer) Verify(raw string) (*Claims, error) {
	if len(t.jwtSecret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
