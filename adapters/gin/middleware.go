// Package authgin adapts the tokengate core to gin handlers: bearer-token
// extraction, verification, role gating, and the response mapping
// (401 for authentication failures, 403 for authorization denials).
package authgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	core "github.com/open-rails/tokengate/core"
	tokenkit "github.com/open-rails/tokengate/token"
)

// claimsKey is the gin context key holding verified claims.
const claimsKey = "auth.claims"

// BearerAuth verifies the Authorization bearer token and stores the claims
// in the gin context. Every verification failure maps to 401; the response
// carries only the public failure category, never internal detail.
func BearerAuth(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := svc.VerifyToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": tokenkit.PublicMessage(err)})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole gates the request on the service's configured role. Runs after
// BearerAuth.
func RequireRole(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		d := svc.Authorize(c.Request.Context(), claims)
		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "reason": d.Reason})
			return
		}
		c.Next()
	}
}

// ClaimsFromGin returns the verified claims stored by BearerAuth.
func ClaimsFromGin(c *gin.Context) (*tokenkit.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokenkit.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}
