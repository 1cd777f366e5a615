package middleware

import (
	"net/http"
	"strings"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/logger"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.NewLogger()

const bearerSchema = "Bearer "

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			log.Error("Missing authorization token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token is required"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			log.Error("Token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("email", claims.Email)
		c.Set("roles", claims.Roles)
		c.Set("privileged", claims.Privileged())

		c.Next()
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the query string for websocket clients that cannot set headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, bearerSchema) {
		return authHeader[len(bearerSchema):]
	}
	return c.Query("token")
}

// GetUserID retrieves the authenticated user id from the context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

// GetUserName retrieves the authenticated user's display name
func GetUserName(c *gin.Context) string {
	return c.GetString("user_name")
}

// IsPrivileged reports whether the caller holds an admin role
func IsPrivileged(c *gin.Context) bool {
	return c.GetBool("privileged")
}
