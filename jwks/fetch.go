package jwkskit

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ErrFetch is returned when the key-discovery document cannot be acquired or
// parsed. The wrapped cause is for logs only; handlers must not echo it.
var ErrFetch = errors.New("jwks: fetch failed")

// DocumentStore caches the raw JWKS document between fetches, so replicas can
// share one download within the store's TTL. Implementations live under
// storage/memory and storage/redis.
type DocumentStore interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Put(ctx context.Context, doc []byte) error
}

// Fetcher downloads and parses the key-discovery document for one provider.
// It holds no mutable state; populate-once semantics belong to Cache.
type Fetcher struct {
	url    string
	client *http.Client
	store  DocumentStore
}

// FetcherOpt configures a Fetcher.
type FetcherOpt func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for discovery requests.
func WithHTTPClient(c *http.Client) FetcherOpt {
	return func(f *Fetcher) { f.client = c }
}

// WithDocumentStore adds a shared document cache consulted before the network.
func WithDocumentStore(s DocumentStore) FetcherOpt {
	return func(f *Fetcher) { f.store = s }
}

// NewFetcher builds a Fetcher for the given JWKS URL.
func NewFetcher(url string, opts ...FetcherOpt) *Fetcher {
	f := &Fetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch acquires the current key set. A DocumentStore hit skips the network;
// a stale or corrupt stored document falls through to a fresh download.
// Any malformed entry fails the whole fetch: a partial key set would silently
// reject tokens signed with the skipped keys.
func (f *Fetcher) Fetch(ctx context.Context) (*KeySet, error) {
	if f.store != nil {
		if doc, ok, err := f.store.Get(ctx); err == nil && ok {
			if ks, err := ParseKeySet(doc); err == nil {
				return ks, nil
			}
		}
	}
	body, err := f.download(ctx)
	if err != nil {
		return nil, err
	}
	ks, err := ParseKeySet(body)
	if err != nil {
		return nil, err
	}
	if f.store != nil {
		// Best effort; a dead store must not fail verification.
		_ = f.store.Put(ctx, body)
	}
	return ks, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	return body, nil
}

// ParseKeySet decodes a JWKS document into an immutable KeySet. Every entry
// must be an RSA signature key with a unique, non-empty kid.
func ParseKeySet(doc []byte) (*KeySet, error) {
	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", ErrFetch, err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: document contains no keys", ErrFetch)
	}
	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			return nil, fmt.Errorf("%w: key %d missing", ErrFetch, i)
		}
		kid := key.KeyID()
		if kid == "" {
			return nil, fmt.Errorf("%w: key %d has no kid", ErrFetch, i)
		}
		if key.KeyType() != jwa.RSA {
			return nil, fmt.Errorf("%w: key %q has unsupported kty %q", ErrFetch, kid, key.KeyType())
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			return nil, fmt.Errorf("%w: key %q has unsupported use %q", ErrFetch, kid, use)
		}
		if _, dup := keys[kid]; dup {
			return nil, fmt.Errorf("%w: duplicate kid %q", ErrFetch, kid)
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrFetch, kid, err)
		}
		keys[kid] = &pub
	}
	return NewKeySet(keys), nil
}
