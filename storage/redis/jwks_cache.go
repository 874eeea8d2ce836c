package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// JWKSCache is a Redis-backed jwkskit.DocumentStore. Replicas behind the
// same provider share one fetched document within the TTL, so key discovery
// is downloaded once per rotation window rather than once per pod.
type JWKSCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewJWKSCache creates a Redis document cache. If keyName is empty,
// "tokengate:jwks:document" is used; if ttl <= 0, 12 hours.
func NewJWKSCache(rdb *redis.Client, keyName string, ttl time.Duration) *JWKSCache {
	if keyName == "" {
		keyName = "tokengate:jwks:document"
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWKSCache{rdb: rdb, key: keyName, ttl: ttl}
}

func (c *JWKSCache) Get(ctx context.Context) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *JWKSCache) Put(ctx context.Context, doc []byte) error {
	return c.rdb.Set(ctx, c.key, doc, c.ttl).Err()
}
