package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextAccountID is the gin context key holding the authenticated account.
const ContextAccountID = "accountID"

func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		accountID, err := ParseAccessToken(secret, parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextAccountID, accountID)
		c.Next()
	}
}

// InternalKeyMiddleware protects operational endpoints (manual dispatch
// triggers) with a shared key. With no key configured the endpoints are
// disabled outright.
func InternalKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "internal API disabled"})
			c.Abort()
			return
		}
		if c.GetHeader("X-Internal-Key") != key {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid internal key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
