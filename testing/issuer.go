// Package authtest provides a mock identity provider for tests: an HTTP
// server publishing a JWKS document plus helpers that mint tokens which
// verify against it. No real provider is needed to exercise the full
// fetch, cache, verify, and authorize path.
//
// Example:
//
//	issuer := authtest.NewIssuer("api://my-service")
//	defer issuer.Close()
//
//	tok := issuer.TokenWithRoles("user-1", []string{"Task.HelloWorld"})
package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwkskit "github.com/open-rails/tokengate/jwks"
)

// Issuer is a mock provider: it serves JWKS at /.well-known/jwks.json and a
// minimal OIDC discovery document, and signs tokens that validate against
// the served keys.
type Issuer struct {
	server   *httptest.Server
	audience string

	mu      sync.Mutex
	signer  *RSASigner
	retired []*RSASigner // keys dropped from the JWKS by Rotate
	serial  int
}

// NewIssuer starts a mock provider minting tokens for the given audience.
// Call Close when done.
func NewIssuer(audience string) *Issuer {
	signer, err := NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("authtest: generate RSA key: " + err.Error())
	}
	iss := &Issuer{signer: signer, audience: audience, serial: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", iss.handleJWKS)
	mux.HandleFunc("/.well-known/openid-configuration", iss.handleDiscovery)
	iss.server = httptest.NewServer(mux)
	return iss
}

// URL is the issuer identifier and base URL of the mock provider.
func (i *Issuer) URL() string { return i.server.URL }

// JWKSURL is the key-discovery endpoint.
func (i *Issuer) JWKSURL() string { return i.server.URL + "/.well-known/jwks.json" }

// Audience returns the audience claims are minted for.
func (i *Issuer) Audience() string { return i.audience }

// Close shuts the provider down.
func (i *Issuer) Close() { i.server.Close() }

// Rotate replaces the signing key with a fresh one under a new kid. Tokens
// minted afterwards only verify against a re-fetched JWKS; tokens minted
// before no longer have a published key, mimicking provider rotation.
func (i *Issuer) Rotate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.serial++
	kid := fmt.Sprintf("test-key-%d", i.serial)
	signer, err := NewRSASigner(2048, kid)
	if err != nil {
		panic("authtest: rotate RSA key: " + err.Error())
	}
	i.retired = append(i.retired, i.signer)
	i.signer = signer
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	doc := jwkskit.Document{Keys: []jwkskit.JWK{
		jwkskit.RSAPublicToJWK(i.signer.PublicKey(), i.signer.KID(), i.signer.Algorithm()),
	}}
	i.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"issuer":"` + i.URL() + `","jwks_uri":"` + i.JWKSURL() + `"}`))
}

// Token mints a valid one-hour token for subject with no extra claims.
func (i *Issuer) Token(subject string) string {
	return i.TokenWithClaims(subject, nil)
}

// TokenWithRoles mints a valid token carrying a roles claim.
func (i *Issuer) TokenWithRoles(subject string, roles []string) string {
	return i.TokenWithClaims(subject, jwt.MapClaims{"roles": roles})
}

// ExpiredToken mints a token whose expiry is an hour in the past.
func (i *Issuer) ExpiredToken(subject string) string {
	return i.TokenWithClaims(subject, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}

// TokenWithClaims mints a token with extra claims merged over the standard
// set (iss, aud, sub, exp, iat).
func (i *Issuer) TokenWithClaims(subject string, extra jwt.MapClaims) string {
	i.mu.Lock()
	signer := i.signer
	i.mu.Unlock()
	return i.mint(signer, subject, extra)
}

// RetiredToken mints an otherwise-valid token signed with the most recently
// retired key, whose kid is no longer published. Panics unless Rotate has
// been called.
func (i *Issuer) RetiredToken(subject string) string {
	i.mu.Lock()
	if len(i.retired) == 0 {
		i.mu.Unlock()
		panic("authtest: RetiredToken requires a prior Rotate")
	}
	signer := i.retired[len(i.retired)-1]
	i.mu.Unlock()
	return i.mint(signer, subject, nil)
}

func (i *Issuer) mint(signer *RSASigner, subject string, extra jwt.MapClaims) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.URL(),
		"aud": i.audience,
		"sub": subject,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := signer.Sign(claims)
	if err != nil {
		panic("authtest: sign token: " + err.Error())
	}
	return tok
}
