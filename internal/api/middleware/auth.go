package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

const principalKey = "principal"

// AuthMiddleware creates JWT authentication middleware. The token subject
// becomes the invoking principal of the request.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" || strings.Contains(token, " ") {
			response.Unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Set("name", claims.Name)

		c.Next()
	}
}

// GetPrincipal retrieves the invoking principal from the request context
func GetPrincipal(c *gin.Context) string {
	return c.GetString(principalKey)
}

// GetName retrieves the display name of the principal
func GetName(c *gin.Context) string {
	return c.GetString("name")
}
