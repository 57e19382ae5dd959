package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/models"
	"cypher-service/internal/security"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// UserLookup fetches a user record; used by RequireEmployee.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth validates the bearer token and stores the user id in the context.
func Auth(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireEmployee rejects callers whose user record is not an employee.
// Must run after Auth.
func RequireEmployee(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "employee role required"})
			return
		}
		if user.Role != models.RoleEmployee {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "employee role required"})
			return
		}
		c.Next()
	}
}
