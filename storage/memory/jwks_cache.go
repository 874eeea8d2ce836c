package memorystore

import (
	"context"
	"sync"
	"time"
)

// JWKSCache is an in-process jwkskit.DocumentStore holding the raw JWKS
// document with a TTL. Single-node fallback when Redis is not deployed.
type JWKSCache struct {
	mu  sync.Mutex
	ttl time.Duration
	doc []byte
	exp time.Time
}

// NewJWKSCache creates an in-memory document cache. If ttl <= 0, a default
// of 12 hours is used.
func NewJWKSCache(ttl time.Duration) *JWKSCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWKSCache{ttl: ttl}
}

func (c *JWKSCache) Get(ctx context.Context) ([]byte, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil || time.Now().After(c.exp) {
		c.doc = nil
		return nil, false, nil
	}
	out := make([]byte, len(c.doc))
	copy(out, c.doc)
	return out, true, nil
}

func (c *JWKSCache) Put(ctx context.Context, doc []byte) error {
	_ = ctx
	cp := make([]byte, len(doc))
	copy(cp, doc)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = cp
	c.exp = time.Now().Add(c.ttl)
	return nil
}
