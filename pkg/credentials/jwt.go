package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/revocation"
)

const (
	// Issuer identifies tokens minted by this service
	Issuer = "trimslot"
	// DefaultTTL is the session token lifetime when the caller does not override it
	DefaultTTL = 12 * time.Hour
)

var (
	// ErrInvalidToken is returned for malformed, mis-signed, or expired tokens
	ErrInvalidToken = errors.New("credentials: invalid token")
	// ErrMissingSecret is returned when a signer is constructed without key material
	ErrMissingSecret = errors.New("credentials: signing secret is required")
)

// Claims is the JWT payload carried by session tokens. The organization ID
// is empty only for super admins.
type Claims struct {
	OrganizationID string `json:"org,omitempty"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HMAC-signed session tokens. Every minted token
// is recorded with the revocation registrar so that bulk revocation by
// principal can later enumerate it.
type Signer struct {
	secret    []byte
	ttl       time.Duration
	registrar revocation.Registrar
	now       func() time.Time
}

// NewSigner creates a signer. The registrar may be nil, in which case
// issued tokens are not recorded and only per-token revocation works.
func NewSigner(secret []byte, ttl time.Duration, registrar revocation.Registrar) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret:    secret,
		ttl:       ttl,
		registrar: registrar,
		now:       time.Now,
	}, nil
}

// Issue mints a session token for the principal and registers its
// fingerprint. The signed token is returned exactly once; only the
// fingerprint is ever stored.
func (s *Signer) Issue(ctx context.Context, principal *identity.Principal) (string, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Role: string(principal.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   principal.ID(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if orgID, ok := principal.OrganizationID(); ok {
		claims.OrganizationID = orgID
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if s.registrar != nil {
		if err := s.registrar.RegisterIssued(ctx, Fingerprint(token), principal.ID(), expiresAt); err != nil {
			return "", fmt.Errorf("failed to register issued token: %w", err)
		}
	}
	return token, nil
}

// Verify parses a token, checks its signature and expiry, and returns its
// claims. Revocation is not checked here; that is the authz gate's job,
// keyed by Fingerprint of the same raw token.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if !identity.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

// ExpiresAtTime returns the claim expiry as a time, or zero when absent
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
