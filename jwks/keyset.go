// Package jwkskit obtains and caches a provider's published signing keys.
//
// The package consumes a JWKS (key-discovery) document over HTTPS, materializes
// each entry into an RSA public key, and exposes the result as an immutable
// KeySet keyed by kid. A Cache wraps the fetch with populate-once semantics so
// a process issues at most one discovery request no matter how many requests
// race on first use.
package jwkskit

import (
	"crypto/rsa"
	"time"
)

// KeySet is an immutable snapshot of a provider's signing keys, keyed by kid.
// A KeySet is never mutated after construction; rotation produces a new one.
type KeySet struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet builds a KeySet from a kid-to-public-key map. The map is copied so
// later caller mutations cannot leak into the set.
func NewKeySet(keys map[string]*rsa.PublicKey) *KeySet {
	cp := make(map[string]*rsa.PublicKey, len(keys))
	for kid, k := range keys {
		cp[kid] = k
	}
	return &KeySet{keys: cp, fetchedAt: time.Now()}
}

// Key returns the verification key for kid, if present.
func (s *KeySet) Key(kid string) (*rsa.PublicKey, bool) {
	if s == nil {
		return nil, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

// Len reports how many keys the set holds.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// FetchedAt reports when the set was materialized.
func (s *KeySet) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
