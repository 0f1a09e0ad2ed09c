// Package auth holds the gin middleware that resolves the session user.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"socialgraph/backend/pkg/jwt"
)

// ContextKey is where the middleware stores the authenticated user's ID.
const ContextKey = "userID"

// TokenParser verifies a session token.
type TokenParser interface {
	ParseToken(tokenString string) (uuid.UUID, error)
}

var _ TokenParser = (*jwt.Issuer)(nil)

// AuthMiddleware rejects requests without a valid token. The token is read
// from the Authorization header, or from the "token" query parameter for
// clients that cannot set headers (browser websockets).
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required", "code": "unauthenticated"})
			return
		}

		userID, err := parser.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthenticated"})
			return
		}

		c.Set(ContextKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID set by the middleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
