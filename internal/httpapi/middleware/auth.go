package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/auth"
)

// UserIDKey is the gin context key the authenticated user id is stored under.
const UserIDKey = "userID"

// AuthRequired verifies the Bearer token and stores the user id on the
// context. Requests without a valid token never reach the handler.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing bearer token",
			})
			return
		}

		uid, err := auth.ParseJWT(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}
