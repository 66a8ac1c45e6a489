package revocation

import (
	"context"
	"errors"
	"time"
)

// Reason records why a credential was revoked
type Reason string

const (
	ReasonLogout   Reason = "logout"
	ReasonBan      Reason = "ban"
	ReasonRotation Reason = "rotation"
)

// FingerprintLength is the length of a credential fingerprint
// (hex-encoded SHA-256).
const FingerprintLength = 64

var (
	// ErrInvalidExpiry is returned when Revoke is called with an expiry that
	// is not in the future. A credential past its own expiry is already
	// rejected by the verifier, so such an entry would be meaningless.
	ErrInvalidExpiry = errors.New("revocation: expiry must be in the future")

	// ErrInvalidFingerprint is returned for fingerprints of the wrong shape
	ErrInvalidFingerprint = errors.New("revocation: fingerprint must be a 64-character hash")
)

// Entry is a single revoked-credential record. Entries are immutable once
// written; a later Revoke for the same fingerprint replaces the whole entry
// (last-writer-wins).
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	PrincipalID string    `json:"principal_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Reason      Reason    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Live reports whether the entry still matters at the given instant.
// Once now > ExpiresAt the underlying credential is rejected as expired
// anyway, so the entry behaves as absent.
func (e Entry) Live(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// Store is the revoked-credential set. Implementations must support many
// concurrent readers with occasional concurrent writers; an entry becomes
// visible atomically, as a whole, or not at all.
type Store interface {
	// Revoke inserts or replaces the entry for a fingerprint. Idempotent on
	// fingerprint; fails with ErrInvalidExpiry when expiresAt <= now.
	Revoke(ctx context.Context, fingerprint, principalID string, expiresAt time.Time, reason Reason) error

	// IsRevoked reports whether the fingerprint has a live (non-expired)
	// entry. Expired entries behave as "not revoked" even if physically
	// still present.
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)

	// Compact removes every entry with expiresAt <= now and returns the
	// number removed. Safe to run concurrently with reads and Revoke; an
	// entry whose expiry was extended concurrently must survive.
	Compact(ctx context.Context, now time.Time) (int, error)

	// RevokeAllForPrincipal revokes every outstanding registered credential
	// of the principal and returns the affected fingerprints.
	RevokeAllForPrincipal(ctx context.Context, principalID string, reason Reason) ([]string, error)
}

// Registrar records credential fingerprints at issuance so that bulk
// revocation ("ban user", "force logout everywhere") can find them later.
type Registrar interface {
	RegisterIssued(ctx context.Context, fingerprint, principalID string, expiresAt time.Time) error
}

func validateFingerprint(fingerprint string) error {
	if len(fingerprint) != FingerprintLength {
		return ErrInvalidFingerprint
	}
	return nil
}
