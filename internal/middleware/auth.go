package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"globetrackr/api/internal/models"
	"globetrackr/api/internal/security"
)

const (
	// ContextUserKey is where Protect stores the authenticated user.
	ContextUserKey = "current_user"

	// SessionCookieName is the cookie the token is also accepted from.
	SessionCookieName = "jwt"

	// The same message is returned for every authentication failure so
	// callers cannot tell a missing token from an expired or revoked one.
	unauthenticatedMessage = "you are not logged in, please log in to get access"
)

// UserGetter resolves the token subject to a principal. Implemented by
// repository.UserRepository.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Protect authenticates the request: extract bearer token (header first,
// cookie fallback), verify signature and expiry, resolve the user, then
// reject tokens issued before the last password change. On success the
// user is attached to the gin context for downstream handlers.
func Protect(tokens *security.TokenIssuer, users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			abortUnauthenticated(c)
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		if !user.Active {
			abortUnauthenticated(c)
			return
		}

		if claims.IssuedAt == nil || user.ChangedPasswordAfter(claims.IssuedAt.Time) {
			abortUnauthenticated(c)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthenticatedMessage})
}

// CurrentUser returns the principal attached by Protect.
func CurrentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
