package jwkskit

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
)

// JWK carries the minimal fields of an RSA public signing key as published
// in a provider's key-discovery document.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

// Document is the JWKS wire format: a JSON object with a "keys" array.
type Document struct {
	Keys []JWK `json:"keys"`
}

// RSAPublicToJWK converts an RSA public key to its JWK representation.
func RSAPublicToJWK(pub *rsa.PublicKey, kid, alg string) JWK {
	n := base64URLEncode(pub.N)
	e := base64URLEncode(big.NewInt(int64(pub.E)))
	return JWK{Kty: "RSA", Use: "sig", Kid: kid, Alg: alg, N: n, E: e}
}

func base64URLEncode(i *big.Int) string {
	b := i.Bytes()
	// Strip leading zeros for canonical form
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
