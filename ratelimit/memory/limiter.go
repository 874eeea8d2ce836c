package memorylimiter

import (
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is an in-memory sliding-window rate limiter. It throttles
// miss-triggered JWKS refreshes and can gate HTTP endpoints through the same
// AllowNamed interface.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string][]int64 // request times in Unix ms, newest last
}

// New constructs a limiter with the provided per-bucket limits. Buckets
// without an explicit limit fall back to the "default" entry, or to
// 100/minute when none is configured.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string][]int64),
	}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed reports whether one more event is allowed for (bucket, key)
// within the bucket's sliding window. Expired timestamps are pruned on each
// call; empty buckets are dropped so memory stays bounded.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.limitFor(bucket)
	nowMs := time.Now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.buckets[limitKey]
	prune := 0
	for prune < len(ts) && ts[prune] < windowStart {
		prune++
	}
	ts = ts[prune:]

	if len(ts) >= lim.Limit {
		// Deny without recording the attempt.
		l.buckets[limitKey] = ts
		return false, nil
	}

	ts = append(ts, nowMs)
	l.buckets[limitKey] = ts
	return true, nil
}
