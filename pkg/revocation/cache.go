package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix = "rv:"

	// negativeTTL bounds how long a "not revoked" answer may be served
	// from cache. A revocation issued on another node becomes visible here
	// within this window at the latest.
	negativeTTL = 30 * time.Second
)

// CachedStore layers a Redis read-through cache over a durable Store.
// Positive answers are cached until the entry's own expiry; negative
// answers only briefly. Concurrent misses for the same fingerprint are
// collapsed into a single durable lookup.
//
// The cache fails open towards the durable store: if Redis is unreachable
// the lookup goes straight through. If the durable store is also down the
// error propagates and the gate denies (fail closed).
type CachedStore struct {
	durable Store
	redis   *redis.Client
	group   singleflight.Group
	now     func() time.Time
}

// NewCachedStore creates a cache layer over the durable store
func NewCachedStore(durable Store, client *redis.Client) *CachedStore {
	return &CachedStore{
		durable: durable,
		redis:   client,
		now:     time.Now,
	}
}

// Revoke writes through to the durable store, then primes the cache
func (c *CachedStore) Revoke(ctx context.Context, fingerprint, principalID string, expiresAt time.Time, reason Reason) error {
	if err := c.durable.Revoke(ctx, fingerprint, principalID, expiresAt, reason); err != nil {
		return err
	}
	c.cacheRevoked(ctx, fingerprint, expiresAt)
	return nil
}

// IsRevoked answers from Redis when possible, falling back to the durable
// store on miss or Redis failure
func (c *CachedStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	key := cacheKeyPrefix + fingerprint

	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		return val == "1", nil
	}
	// redis.Nil is a miss; any other error means Redis is unhealthy and we
	// go straight to the durable store.

	result, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		revoked, err := c.durable.IsRevoked(ctx, fingerprint)
		if err != nil {
			return false, err
		}

		if revoked {
			// Without the entry at hand the precise expiry is unknown
			// here; the negative window also bounds positive staleness
			// after compaction, which is harmless (a compacted entry
			// answers "revoked" a little longer, never the reverse).
			c.redis.Set(ctx, key, "1", negativeTTL)
		} else {
			c.redis.Set(ctx, key, "0", negativeTTL)
		}
		return revoked, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// Compact compacts the durable store. Cached positive answers age out via
// their TTL; no explicit invalidation is needed.
func (c *CachedStore) Compact(ctx context.Context, now time.Time) (int, error) {
	return c.durable.Compact(ctx, now)
}

// RevokeAllForPrincipal bulk-revokes in the durable store and primes the
// cache for every affected fingerprint
func (c *CachedStore) RevokeAllForPrincipal(ctx context.Context, principalID string, reason Reason) ([]string, error) {
	fingerprints, err := c.durable.RevokeAllForPrincipal(ctx, principalID, reason)
	if err != nil {
		return nil, err
	}
	for _, fp := range fingerprints {
		// Expiry varies per credential; the short TTL is enough since the
		// durable store is authoritative on re-lookup.
		c.redis.Set(ctx, cacheKeyPrefix+fp, "1", negativeTTL)
	}
	return fingerprints, nil
}

// RegisterIssued passes through when the durable store supports it
func (c *CachedStore) RegisterIssued(ctx context.Context, fingerprint, principalID string, expiresAt time.Time) error {
	registrar, ok := c.durable.(Registrar)
	if !ok {
		return fmt.Errorf("revocation: durable store does not register issued credentials")
	}
	return registrar.RegisterIssued(ctx, fingerprint, principalID, expiresAt)
}

func (c *CachedStore) cacheRevoked(ctx context.Context, fingerprint string, expiresAt time.Time) {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	// Best effort: a cache write failure only costs a durable lookup later.
	c.redis.Set(ctx, cacheKeyPrefix+fingerprint, "1", ttl)
}
