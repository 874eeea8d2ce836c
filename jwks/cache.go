package jwkskit

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Throttle limits miss-triggered refreshes. It matches the rate limiter
// interface used by the HTTP adapters so either implementation can serve.
type Throttle interface {
	AllowNamed(bucket, key string) (bool, error)
}

// ThrottleBucket is the limiter bucket consumed by miss-triggered refreshes.
const ThrottleBucket = "jwks_refresh"

// Source yields a key set. Fetcher is the production implementation; tests
// substitute their own.
type Source interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// Cache is the process-wide holder of the provider's key set.
//
// The first caller among any number of concurrent ones triggers a single
// fetch; all of them receive the identical resulting set. A failed fetch is
// not cached, so the next caller retries. A successful set lives until the
// process exits or Refresh swaps it. Callers never observe a partially
// populated set: they see nil-and-fetching, or a complete immutable KeySet.
type Cache struct {
	source   Source
	throttle Throttle

	group singleflight.Group

	mu      sync.RWMutex
	current *KeySet
}

// CacheOpt configures a Cache.
type CacheOpt func(*Cache)

// WithMissThrottle enables miss-triggered refreshes, bounded by the limiter.
// Without it, RefreshForMiss is a no-op and an unknown kid stays unknown
// until the process restarts or a scheduled refresh runs.
func WithMissThrottle(t Throttle) CacheOpt {
	return func(c *Cache) { c.throttle = t }
}

// NewCache builds a Cache over the given source.
func NewCache(source Source, opts ...CacheOpt) *Cache {
	c := &Cache{source: source}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached key set, fetching it on first use.
func (c *Cache) Get(ctx context.Context) (*KeySet, error) {
	c.mu.RLock()
	ks := c.current
	c.mu.RUnlock()
	if ks != nil {
		return ks, nil
	}
	return c.fetch(ctx)
}

// Refresh forces a fetch and atomically swaps in the new set. Concurrent
// refreshes collapse into one network call. On failure the previous set, if
// any, stays in place.
func (c *Cache) Refresh(ctx context.Context) (*KeySet, error) {
	return c.fetch(ctx)
}

// RefreshForMiss runs one throttled refresh after a kid lookup miss, the
// usual symptom of provider key rotation. The throttle key is fixed, not the
// missing kid, so the per-window budget bounds total upstream fetches: tokens
// forged with many distinct kids share one budget instead of getting one
// refresh each. It returns (nil, nil) when no throttle is configured or the
// limiter denies, so the caller falls back to treating the kid as unknown.
func (c *Cache) RefreshForMiss(ctx context.Context) (*KeySet, error) {
	if c.throttle == nil {
		return nil, nil
	}
	ok, err := c.throttle.AllowNamed(ThrottleBucket, "any")
	if err != nil || !ok {
		return nil, nil
	}
	return c.fetch(ctx)
}

// Current returns the cached set without triggering a fetch.
func (c *Cache) Current() *KeySet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Cache) fetch(ctx context.Context) (*KeySet, error) {
	v, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		ks, err := c.source.Fetch(ctx)
		if err != nil {
			// Not cached: the next caller may retry.
			return nil, err
		}
		c.mu.Lock()
		c.current = ks
		c.mu.Unlock()
		return ks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*KeySet), nil
}
