package jwkskit

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testJWK(t *testing.T, kid string) JWK {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return RSAPublicToJWK(&key.PublicKey, kid, "RS256")
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestParseKeySet(t *testing.T) {
	doc := mustMarshal(t, Document{Keys: []JWK{testJWK(t, "a"), testJWK(t, "b")}})

	ks, err := ParseKeySet(doc)
	if err != nil {
		t.Fatalf("ParseKeySet: %v", err)
	}
	if ks.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", ks.Len())
	}
	if _, ok := ks.Key("a"); !ok {
		t.Error("kid a missing")
	}
	if _, ok := ks.Key("c"); ok {
		t.Error("unexpected kid c")
	}
}

func TestParseKeySetRejectsMissingKid(t *testing.T) {
	k := testJWK(t, "a")
	k.Kid = ""
	doc := mustMarshal(t, Document{Keys: []JWK{k}})

	if _, err := ParseKeySet(doc); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for missing kid, got %v", err)
	}
}

func TestParseKeySetRejectsDuplicateKid(t *testing.T) {
	doc := mustMarshal(t, Document{Keys: []JWK{testJWK(t, "dup"), testJWK(t, "dup")}})

	if _, err := ParseKeySet(doc); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for duplicate kid, got %v", err)
	}
}

func TestParseKeySetRejectsNonRSA(t *testing.T) {
	doc := []byte(`{"keys":[{"kty":"EC","kid":"e1","crv":"P-256",` +
		`"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",` +
		`"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM"}]}`)

	if _, err := ParseKeySet(doc); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for EC key, got %v", err)
	}
}

func TestParseKeySetRejectsEmptyDocument(t *testing.T) {
	if _, err := ParseKeySet([]byte(`{"keys":[]}`)); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for empty document, got %v", err)
	}
	if _, err := ParseKeySet([]byte(`not json`)); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for malformed document, got %v", err)
	}
}

func TestFetcherWholeFetchFailsOnBadEntry(t *testing.T) {
	good := testJWK(t, "good")
	bad := testJWK(t, "")
	doc := mustMarshal(t, Document{Keys: []JWK{good, bad}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	// One bad entry poisons the whole fetch; no partial set is returned.
	if _, err := NewFetcher(srv.URL).Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFetcherWithInjectedClient(t *testing.T) {
	doc := mustMarshal(t, Document{Keys: []JWK{testJWK(t, "inproc")}})
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(bytes.NewReader(doc)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	ks, err := NewFetcher("http://provider.internal/keys", WithHTTPClient(client)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, ok := ks.Key("inproc"); !ok {
		t.Error("expected key from injected transport")
	}
	if ks.FetchedAt().IsZero() || time.Since(ks.FetchedAt()) > time.Minute {
		t.Errorf("unexpected fetch time %v", ks.FetchedAt())
	}
}

func TestFetcherNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewFetcher(srv.URL).Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

type fakeStore struct {
	doc  []byte
	puts int
}

func (s *fakeStore) Get(context.Context) ([]byte, bool, error) {
	if s.doc == nil {
		return nil, false, nil
	}
	return s.doc, true, nil
}

func (s *fakeStore) Put(_ context.Context, doc []byte) error {
	s.doc = doc
	s.puts++
	return nil
}

func TestFetcherUsesDocumentStore(t *testing.T) {
	doc := mustMarshal(t, Document{Keys: []JWK{testJWK(t, "stored")}})
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	store := &fakeStore{}
	f := NewFetcher(srv.URL, WithDocumentStore(store))

	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if hits != 1 || store.puts != 1 {
		t.Fatalf("expected one download and one store write, got %d/%d", hits, store.puts)
	}

	// Second fetch is served from the store.
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected store hit to skip the network, got %d downloads", hits)
	}
}

func TestFetcherCorruptStoreFallsThrough(t *testing.T) {
	doc := mustMarshal(t, Document{Keys: []JWK{testJWK(t, "fresh")}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	store := &fakeStore{doc: []byte("garbage")}
	ks, err := NewFetcher(srv.URL, WithDocumentStore(store)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, ok := ks.Key("fresh"); !ok {
		t.Error("expected key from network after corrupt store entry")
	}
}
