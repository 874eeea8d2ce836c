// Package tokenkit verifies OAuth2/OIDC bearer tokens against a provider's
// published signing keys and validates their standard claims.
package tokenkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwkskit "github.com/open-rails/tokengate/jwks"
)

// Claims is the verified payload of an accepted token. Produced only by
// Verifier.Verify; treat as immutable.
type Claims struct {
	Issuer    string
	Audience  string
	Subject   string
	ExpiresAt time.Time
	Roles     []string
}

// HasRoles reports whether the token carried a roles claim at all.
func (c *Claims) HasRoles() bool { return c.Roles != nil }

// DefaultSkew is the clock-skew allowance applied to expiry checks.
const DefaultSkew = 30 * time.Second

// allowedAlgs is the explicit signing-algorithm allow-list. Symmetric and
// "none" algorithms are rejected before any key is consulted, closing the
// usual downgrade hole.
var allowedAlgs = []string{"RS256", "RS384", "RS512"}

// Verifier checks a raw bearer token end to end: header decode, key lookup
// through the shared cache, signature verification, then ordered claim
// validation in a fixed order (expiry, then audience, then issuer).
type Verifier struct {
	cache    *jwkskit.Cache
	issuer   string
	audience string
	skew     time.Duration
	algs     []string
	parser   *jwt.Parser
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithSkew overrides the clock-skew allowance for expiry validation.
func WithSkew(d time.Duration) VerifierOpt {
	return func(v *Verifier) { v.skew = d }
}

// WithAlgorithms narrows the accepted signing algorithms. Values outside the
// RSA family are dropped; the allow-list can narrow but never widen.
func WithAlgorithms(algs []string) VerifierOpt {
	return func(v *Verifier) {
		var kept []string
		for _, a := range algs {
			if containsString(allowedAlgs, a) {
				kept = append(kept, a)
			}
		}
		if len(kept) > 0 {
			v.algs = kept
		}
	}
}

// NewVerifier builds a Verifier bound to one expected issuer and audience.
func NewVerifier(cache *jwkskit.Cache, issuer, audience string, opts ...VerifierOpt) *Verifier {
	v := &Verifier{
		cache:    cache,
		issuer:   issuer,
		audience: audience,
		skew:     DefaultSkew,
		algs:     allowedAlgs,
	}
	for _, opt := range opts {
		opt(v)
	}
	// Claim validation is done by hand below so the check order is ours.
	v.parser = jwt.NewParser(
		jwt.WithValidMethods(v.algs),
		jwt.WithoutClaimsValidation(),
	)
	return v
}

// Verify authenticates raw and returns its claims, or one of the package
// sentinel errors. Failures are terminal for the request and never corrupt
// the key cache.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	tok, err := v.parser.ParseWithClaims(raw, mc, v.keyfunc(ctx))
	if err != nil {
		return nil, categorize(err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("%w: parser accepted an unverified token", ErrBadSignature)
	}
	return v.validateClaims(mc)
}

// keyfunc resolves the verification key for a parsed header. The context is
// captured per call because the underlying parser API carries none.
func (v *Verifier) keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: header has no kid", ErrMalformedToken)
		}
		ks, err := v.cache.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
		}
		if key, ok := ks.Key(kid); ok {
			return key, nil
		}
		// Likely rotation: one throttled refresh before giving up.
		if refreshed, err := v.cache.RefreshForMiss(ctx); err == nil && refreshed != nil {
			if key, ok := refreshed.Key(kid); ok {
				return key, nil
			}
		}
		return nil, fmt.Errorf("%w: kid %q not in key set", ErrUnknownKey, kid)
	}
}

func (v *Verifier) validateClaims(mc jwt.MapClaims) (*Claims, error) {
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing or invalid exp claim", ErrExpired)
	}
	if time.Now().After(exp.Time.Add(v.skew)) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpired, exp.Time.Format(time.RFC3339))
	}

	aud, err := mc.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid aud claim", ErrAudienceMismatch)
	}
	if !containsString(aud, v.audience) {
		return nil, fmt.Errorf("%w: aud %v", ErrAudienceMismatch, []string(aud))
	}

	iss, err := mc.GetIssuer()
	if err != nil || iss != v.issuer {
		return nil, fmt.Errorf("%w: iss %q", ErrIssuerMismatch, iss)
	}

	sub, _ := mc.GetSubject()
	return &Claims{
		Issuer:    iss,
		Audience:  v.audience,
		Subject:   sub,
		ExpiresAt: exp.Time,
		Roles:     rolesClaim(mc),
	}, nil
}

// categorize folds library parse errors into the package taxonomy. Keyfunc
// errors already carry our sentinels and pass through unchanged.
func categorize(err error) error {
	switch {
	case isAny(err, ErrMalformedToken, ErrKeyUnavailable, ErrUnknownKey):
		return err
	case isAny(err, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case isAny(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// rolesClaim extracts the optional roles claim. A missing claim yields nil;
// a present-but-empty list yields an empty slice, which the authorizer
// treats differently.
func rolesClaim(mc jwt.MapClaims) []string {
	raw, ok := mc["roles"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, r := range list {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
