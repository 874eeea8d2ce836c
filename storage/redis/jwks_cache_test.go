package redisstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*JWKSCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewJWKSCache(rdb, "", ttl), mr
}

func TestJWKSCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	doc := []byte(`{"keys":[{"kid":"a"}]}`)
	if err := c.Put(ctx, doc); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("got %s", got)
	}
}

func TestJWKSCacheTTL(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := c.Put(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx); ok {
		t.Error("expected entry to expire after TTL")
	}
}

func TestJWKSCacheServerGone(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	if _, _, err := c.Get(context.Background()); err == nil {
		t.Error("expected an error when redis is unreachable")
	}
}
