package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"globetrackr/api/internal/middleware"
	"globetrackr/api/internal/service"
)

type creditCardRequest struct {
	CardHolder string `json:"cardHolder"`
	ExpiryDate string `json:"expiryDate"`
	CardNumber string `json:"cardNumber"`
	CVV        string `json:"cvv"`
}

type registerRequest struct {
	Name       string             `json:"name" binding:"required"`
	Email      string             `json:"email" binding:"required,email"`
	Password   string             `json:"password" binding:"required,min=8"`
	Phone      string             `json:"phone"`
	CreditCard *creditCardRequest `json:"creditCard"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}
	if req.CreditCard != nil {
		input.CardHolder = req.CreditCard.CardHolder
		input.CardExpiry = req.CreditCard.ExpiryDate
		input.CardNumber = req.CreditCard.CardNumber
		input.CardCVV = req.CreditCard.CVV
	}

	result, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, result)
}

// Logout is stateless: the client is told to discard its credential. Any
// token issued before a later password change is already revoked by the
// verification-time check.
func (h HandlerSet) Logout(c *gin.Context) {
	secure := h.cfg.Environment != "development"
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	resetURLBase := fmt.Sprintf("%s://%s/api/v1/users/resetPassword", scheme, c.Request.Host)

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email, resetURLBase); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token sent to email"})
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, result)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) UpdateMyPassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.UpdatePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, result)
}
