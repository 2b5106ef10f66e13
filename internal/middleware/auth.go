package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"seara_joias/internal/auth"
)

// RequireAuth validates the bearer token and stores the caller identity in
// the context. Unauthenticated requests are aborted with 401.
func RequireAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is missing"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		identity, err := svc.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("identity", identity)
		c.Next()
	}
}
