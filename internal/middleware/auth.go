package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"car-rental-api/internal/auth"
)

const UserIDKey = "uid"

// Auth validates the Bearer token and stores the user id on the context.
// Failures answer 401 with a Bearer challenge.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			challenge(c)
			return
		}
		claims, err := auth.ParseToken(strings.TrimPrefix(raw, "Bearer "), secret)
		if err != nil {
			challenge(c)
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

func challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
}

// UserID returns the authenticated user id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
