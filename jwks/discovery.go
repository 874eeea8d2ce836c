package jwkskit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type discoveryDoc struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// ResolveJWKSURL discovers the provider's JWKS URL from its OIDC metadata
// document. Used when configuration supplies an issuer but no explicit
// JWKS URL.
func ResolveJWKSURL(ctx context.Context, issuer string) (string, error) {
	trimmed := strings.TrimRight(issuer, "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: issuer is empty", ErrFetch)
	}
	discoveryURL := trimmed + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build discovery request: %v", ErrFetch, err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: discovery returned %s", ErrFetch, resp.Status)
	}
	var doc discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: decode discovery document: %v", ErrFetch, err)
	}
	if discovered := strings.TrimRight(doc.Issuer, "/"); discovered != "" && discovered != trimmed {
		return "", fmt.Errorf("%w: discovery issuer mismatch: %s", ErrFetch, doc.Issuer)
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("%w: discovery document missing jwks_uri", ErrFetch)
	}
	return doc.JWKSURI, nil
}
