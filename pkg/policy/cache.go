package policy

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Grants is the read interface the gate needs from a grant source
type Grants interface {
	Get(ctx context.Context, storeID, featureKey string) (*FeatureGrant, error)
}

// GrantCache is an in-process expirable LRU over a grant source. Feature
// grants change rarely and are read on the hot path of every gated store
// operation, so a short TTL keeps staleness bounded without a network hop.
type GrantCache struct {
	source Grants
	cache  *lru.LRU[string, *FeatureGrant]
}

// NewGrantCache creates a cache. A nil grant is cached too, so repeated
// lookups of ungranted features do not hammer the database.
func NewGrantCache(source Grants, maxEntries int, ttl time.Duration) *GrantCache {
	if maxEntries < 16 {
		maxEntries = 16
	}
	return &GrantCache{
		source: source,
		cache:  lru.NewLRU[string, *FeatureGrant](maxEntries, nil, ttl),
	}
}

// Get returns the grant for (store, feature), consulting the source on miss
func (c *GrantCache) Get(ctx context.Context, storeID, featureKey string) (*FeatureGrant, error) {
	key := storeID + "\x00" + featureKey

	if grant, ok := c.cache.Get(key); ok {
		if grant == nil {
			return nil, ErrGrantNotFound
		}
		return grant, nil
	}

	grant, err := c.source.Get(ctx, storeID, featureKey)
	if errors.Is(err, ErrGrantNotFound) {
		c.cache.Add(key, nil)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, grant)
	return grant, nil
}

// Invalidate drops a cached grant after Grant/Revoke mutations
func (c *GrantCache) Invalidate(storeID, featureKey string) {
	c.cache.Remove(storeID + "\x00" + featureKey)
}
