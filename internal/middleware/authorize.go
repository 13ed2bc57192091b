package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"globetrackr/api/internal/models"
)

// RequireRoles authorizes an already-authenticated request. It must be
// registered after Protect; a request without a principal in context is
// treated as unauthenticated, not forbidden.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "you do not have permission to perform this action",
			})
			return
		}

		c.Next()
	}
}
