package concept

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL is used when no TTL is configured.
	DefaultCacheTTL = 10 * time.Minute
	cleanupInterval = 2 * DefaultCacheTTL
)

// CachingResolver memoizes positive lookups of another resolver for a TTL
// and collapses concurrent lookups of the same key into one call.
// Misses are never cached so a newly added vocabulary term resolves at once.
type CachingResolver struct {
	next  Resolver
	cache *cache.Cache
	group singleflight.Group
}

// NewCachingResolver wraps next. A ttl <= 0 uses DefaultCacheTTL.
func NewCachingResolver(next Resolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingResolver{
		next:  next,
		cache: cache.New(ttl, max(cleanupInterval, ttl)),
	}
}

// Resolve returns a cached concept type or asks the wrapped resolver.
func (c *CachingResolver) Resolve(ctx context.Context, key string) (*ConceptType, error) {
	if cached, ok := c.cache.Get(key); ok {
		ct := *cached.(*ConceptType)
		return &ct, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		ct, err := c.next.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, ct)
		return ct, nil
	})
	if err != nil {
		return nil, err
	}

	ct := *v.(*ConceptType)
	return &ct, nil
}
