package middlewares

import (
	"net/http"
	"strings"

	"recipebox/utils"

	"github.com/gin-gonic/gin"
)

// TokenAuth requires a valid HS256 bearer token. With an empty secret the
// guard is disabled and every request passes.
func TokenAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		subject, err := utils.ParseJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("subject", subject)
		c.Next()
	}
}
