package auth

import (
	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware sets the caller's user ID when a valid token is
// present. Anonymous requests pass through untouched.
func OptionalAuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if userID, err := parser.ParseToken(tokenString); err == nil {
				c.Set(ContextKey, userID)
			}
		}
		c.Next()
	}
}
