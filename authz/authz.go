// Package authzkit decides whether verified claims grant a required role.
// It is pure: no I/O, no mutable state.
package authzkit

import tokenkit "github.com/open-rails/tokengate/token"

// Denial reasons surfaced in Decision.Reason.
const (
	ReasonNoRolesClaim   = "no_roles_claim"
	ReasonRoleNotPresent = "role_not_present"
)

// Decision is the outcome of an authorization check. Allowed carries the
// principal and granted scope; denied carries a machine-readable reason.
type Decision struct {
	Allowed bool
	Subject string
	Scope   string
	Reason  string
}

// Allowed builds a permit decision.
func Allowed(subject, scope string) Decision {
	return Decision{Allowed: true, Subject: subject, Scope: scope}
}

// Denied builds a deny decision.
func Denied(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorize checks the claims' role list for requiredRole. A token without
// any roles claim is denied distinctly from one whose roles simply omit the
// required value.
func Authorize(claims *tokenkit.Claims, requiredRole string) Decision {
	if claims == nil || !claims.HasRoles() {
		return Denied(ReasonNoRolesClaim)
	}
	for _, role := range claims.Roles {
		if role == requiredRole {
			return Allowed(claims.Subject, requiredRole)
		}
	}
	return Denied(ReasonRoleNotPresent)
}
