package revocation

import (
	"context"
	"sync"
	"time"
)

// compactBatchSize bounds how many entries a single write-lock acquisition
// may delete, so in-flight IsRevoked calls are never stalled for longer
// than one small batch.
const compactBatchSize = 256

// MemoryStore is a hash-indexed in-memory revocation set with per-entry
// expiry. It is the request hot path for single-node deployments and the
// reference implementation of the Store concurrency contract.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	issued  map[string]map[string]time.Time // principalID -> fingerprint -> expiresAt

	// now is swappable for tests
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		issued:  make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke inserts or replaces the entry for the fingerprint
func (s *MemoryStore) Revoke(_ context.Context, fingerprint, principalID string, expiresAt time.Time, reason Reason) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}
	now := s.now()
	if !expiresAt.After(now) {
		return ErrInvalidExpiry
	}

	entry := Entry{
		Fingerprint: fingerprint,
		PrincipalID: principalID,
		ExpiresAt:   expiresAt,
		Reason:      reason,
		CreatedAt:   now,
	}

	s.mu.Lock()
	s.entries[fingerprint] = entry
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether the fingerprint has a live entry
func (s *MemoryStore) IsRevoked(_ context.Context, fingerprint string) (bool, error) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()

	return ok && entry.Live(now), nil
}

// Compact removes expired entries in small batches. The candidate set is
// collected under a read lock; each deletion re-checks ExpiresAt under the
// write lock, so an entry whose expiry was extended by a concurrent Revoke
// survives.
func (s *MemoryStore) Compact(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	candidates := make([]string, 0)
	for fp, entry := range s.entries {
		if !entry.Live(now) {
			candidates = append(candidates, fp)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for start := 0; start < len(candidates); start += compactBatchSize {
		end := start + compactBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		s.mu.Lock()
		for _, fp := range candidates[start:end] {
			entry, ok := s.entries[fp]
			if !ok || entry.Live(now) {
				continue
			}
			delete(s.entries, fp)
			removed++
		}
		s.mu.Unlock()
	}

	s.compactIssued(now)
	return removed, nil
}

// compactIssued drops expired issuance records so the registry does not
// grow with total historical logins.
func (s *MemoryStore) compactIssued(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for principalID, fps := range s.issued {
		for fp, expiresAt := range fps {
			if !expiresAt.After(now) {
				delete(fps, fp)
			}
		}
		if len(fps) == 0 {
			delete(s.issued, principalID)
		}
	}
}

// RegisterIssued records a credential fingerprint at issuance time
func (s *MemoryStore) RegisterIssued(_ context.Context, fingerprint, principalID string, expiresAt time.Time) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fps, ok := s.issued[principalID]
	if !ok {
		fps = make(map[string]time.Time)
		s.issued[principalID] = fps
	}
	fps[fingerprint] = expiresAt
	return nil
}

// RevokeAllForPrincipal revokes every registered outstanding credential of
// the principal. Credentials already past their natural expiry are skipped.
func (s *MemoryStore) RevokeAllForPrincipal(_ context.Context, principalID string, reason Reason) ([]string, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var revoked []string
	for fp, expiresAt := range s.issued[principalID] {
		if !expiresAt.After(now) {
			continue
		}
		s.entries[fp] = Entry{
			Fingerprint: fp,
			PrincipalID: principalID,
			ExpiresAt:   expiresAt,
			Reason:      reason,
			CreatedAt:   now,
		}
		revoked = append(revoked, fp)
	}
	return revoked, nil
}

// Len returns the number of physically present entries, live or not.
// Exposed for the live-entry gauge and tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
