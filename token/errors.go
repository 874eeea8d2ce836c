package tokenkit

import "errors"

// Sentinel errors for bearer-token verification. Wrapped causes (library
// diagnostics, network detail) are for logs; clients only ever see the
// category via PublicMessage.
var (
	// ErrMalformedToken is returned when the token or its header cannot be
	// decoded, or the header carries no kid.
	ErrMalformedToken = errors.New("malformed token")

	// ErrKeyUnavailable is returned when the signing keys could not be
	// fetched at all.
	ErrKeyUnavailable = errors.New("signing keys unavailable")

	// ErrUnknownKey is returned when the token's kid is not in the cached
	// key set. Usually a rotation-timing symptom.
	ErrUnknownKey = errors.New("unknown signing key")

	// ErrBadSignature is returned when cryptographic verification fails or
	// the token declares a disallowed algorithm.
	ErrBadSignature = errors.New("signature verification failed")

	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("token expired")

	// ErrAudienceMismatch is returned when the aud claim does not include
	// the expected audience.
	ErrAudienceMismatch = errors.New("audience mismatch")

	// ErrIssuerMismatch is returned when the iss claim does not match the
	// expected issuer.
	ErrIssuerMismatch = errors.New("issuer mismatch")
)

// PublicMessage maps a verification error to the category string safe to
// return to clients. Internal causes never pass through.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed token"
	case errors.Is(err, ErrKeyUnavailable):
		return "signing keys unavailable"
	case errors.Is(err, ErrUnknownKey):
		return "unknown signing key"
	case errors.Is(err, ErrBadSignature):
		return "invalid signature"
	case errors.Is(err, ErrExpired):
		return "token expired"
	case errors.Is(err, ErrAudienceMismatch):
		return "invalid audience"
	case errors.Is(err, ErrIssuerMismatch):
		return "invalid issuer"
	default:
		return "invalid token"
	}
}
