package authgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleHelloGET greets the verified caller. Runs behind BearerAuth and
// RequireRole, so the claims are always present here.
func HandleHelloGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Hello, authenticated world!",
			"subject": claims.Subject,
		})
	}
}

// HandleHealthzGET reports liveness. Unauthenticated.
func HandleHealthzGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
