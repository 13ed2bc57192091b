package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"globetrackr/api/internal/middleware"
	"globetrackr/api/internal/models"
	"globetrackr/api/internal/repository"
	"globetrackr/api/internal/service"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// toUserResponse shapes a user for clients. The password hash, reset-token
// fields and card ciphertexts never leave the server.
func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Active:    user.Active,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// sendAuthResponse delivers the session token both as an httpOnly cookie
// and in the response body for non-cookie clients. The cookie lifetime is
// the configured number of days; Secure is set outside development.
func (h HandlerSet) sendAuthResponse(c *gin.Context, status int, result service.AuthResult) {
	maxAge := h.cfg.Security.CookieTTLDays * 24 * 60 * 60
	secure := h.cfg.Environment != "development"
	c.SetCookie(middleware.SessionCookieName, result.Token, maxAge, "/", "", secure, true)

	c.JSON(status, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// writeError maps service errors onto HTTP responses. Anything outside the
// known taxonomy is logged server-side and reported as an opaque 500.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDeliveryFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
