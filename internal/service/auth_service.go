package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"globetrackr/api/internal/config"
	"globetrackr/api/internal/ids"
	"globetrackr/api/internal/mail"
	"globetrackr/api/internal/models"
	"globetrackr/api/internal/ratelimit"
	"globetrackr/api/internal/repository"
	"globetrackr/api/internal/security"
)

type AuthService struct {
	users         UserStore
	tokens        *security.TokenIssuer
	cipher        *security.FieldCipher
	mailer        mail.Sender
	loginLimiter  AttemptLimiter
	forgotLimiter AttemptLimiter
	cfg           *config.AppConfig
	log           zerolog.Logger
	now           func() time.Time
}

func NewAuthService(
	users UserStore,
	tokens *security.TokenIssuer,
	cipher *security.FieldCipher,
	mailer mail.Sender,
	loginLimiter AttemptLimiter,
	forgotLimiter AttemptLimiter,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		tokens:        tokens,
		cipher:        cipher,
		mailer:        mailer,
		loginLimiter:  loginLimiter,
		forgotLimiter: forgotLimiter,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	CardHolder string
	CardExpiry string
	CardNumber string
	CardCVV    string
}

type AuthResult struct {
	User  models.User
	Token string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}
	if len(input.Password) < 8 {
		return AuthResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	passwordHash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Active:       true,
	}
	if input.Phone != "" {
		user.Phone = &input.Phone
	}

	user.CreditCard.CardHolder = input.CardHolder
	user.CreditCard.ExpiryDate = input.CardExpiry
	if err := s.encryptCard(&user.CreditCard, input.CardNumber, input.CardCVV); err != nil {
		return AuthResult{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	user.PasswordHash = nil
	return AuthResult{User: user, Token: token}, nil
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: please provide email and password", ErrValidation)
	}

	if err := s.enforceLimit(ctx, s.loginLimiter, "email:"+input.Email); err != nil {
		return AuthResult{}, err
	}
	if input.IPAddress != "" {
		if err := s.enforceLimit(ctx, s.loginLimiter, "ip:"+input.IPAddress); err != nil {
			return AuthResult{}, err
		}
	}

	user, err := s.users.FindByEmail(ctx, input.Email, true)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !user.Active {
		return AuthResult{}, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		// Not a mismatch: the stored hash is unusable. Surface it as a
		// server failure instead of blaming the credentials.
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("password verification failed")
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if s.loginLimiter != nil {
		if err := s.loginLimiter.Reset(ctx, "email:"+input.Email); err != nil {
			s.log.Warn().Err(err).Msg("reset login limiter failed")
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	user.PasswordHash = nil
	return AuthResult{User: user, Token: token}, nil
}

// UpdatePassword verifies the current password, then writes the new hash
// and the changed-at stamp in one store operation. The stamp is backdated
// one second so the token issued right after stays valid; every token
// issued before the change is revoked by the middleware's revocation check.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, currentPassword string, newPassword string) (AuthResult, error) {
	if len(newPassword) < 8 {
		return AuthResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	user, err := s.users.GetByIDWithHash(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("password verification failed")
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	newHash, err := security.HashPassword(newPassword, s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	changedAt := s.now().Add(-time.Second)
	if err := s.users.UpdatePassword(ctx, userID, newHash, changedAt); err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password updated")

	user.PasswordHash = nil
	user.PasswordChangedAt = &changedAt
	return AuthResult{User: user, Token: token}, nil
}

// ForgotPassword issues a single-use reset token valid for the configured
// window and mails the reset link. If delivery fails the stored token pair
// is cleared again so no silently orphaned valid token remains.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURLBase string) error {
	email = NormalizeEmail(email)

	if err := s.enforceLimit(ctx, s.forgotLimiter, "email:"+email); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		return err
	}

	rawToken, tokenHash, err := security.GenerateResetToken()
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.cfg.Security.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + rawToken
	textBody, htmlBody := resetEmailBodies(user.Name, resetURL)

	if err := s.mailer.Send(ctx, user.Email, "Password Reset (valid for 10 min)", textBody, htmlBody); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("reset email delivery failed")
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", user.ID).Msg("clear undelivered reset token failed")
		}
		return ErrDeliveryFailed
	}

	s.log.Info().Str("user_id", user.ID).Time("expires_at", expiresAt).Msg("reset token issued")
	return nil
}

// ResetPassword redeems a raw reset token. The store consumes the token
// with a conditional update, so exactly one of any concurrent attempts
// with the same token succeeds; the rest fail as invalid-or-expired.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, newPassword string) (AuthResult, error) {
	if len(newPassword) < 8 {
		return AuthResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	newHash, err := security.HashPassword(newPassword, s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	tokenHash := security.HashResetToken(rawToken)
	changedAt := s.now().Add(-time.Second)

	user, err := s.users.ConsumeResetToken(ctx, tokenHash, newHash, changedAt)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidResetToken
		}
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")

	user.PasswordHash = nil
	user.PasswordChangedAt = &changedAt
	return AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) enforceLimit(ctx context.Context, limiter AttemptLimiter, key string) error {
	if limiter == nil {
		return nil
	}
	err := limiter.Allow(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimited):
		return ErrTooManyAttempts
	default:
		// Limiter outage must not lock everyone out of authentication.
		s.log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, failing open")
		return nil
	}
}

func (s *AuthService) encryptCard(card *models.CreditCard, number string, cvv string) error {
	if number != "" {
		ciphertext, iv, err := s.cipher.Encrypt(number)
		if err != nil {
			return err
		}
		card.NumberCiphertext, card.NumberIV = ciphertext, iv
	}
	if cvv != "" {
		ciphertext, iv, err := s.cipher.Encrypt(cvv)
		if err != nil {
			return err
		}
		card.CVVCiphertext, card.CVVIV = ciphertext, iv
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for lookups and
// storage.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func resetEmailBodies(name string, resetURL string) (string, string) {
	if name == "" {
		name = "User"
	}

	text := fmt.Sprintf(
		"You requested a password reset.\nPlease make a PATCH request with your new password to:\n%s\n\nIf you didn't request this, please ignore this email.",
		resetURL,
	)

	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
  <h2>Hello %s</h2>
  <p>You requested a password reset for your GlobeTrackr account.</p>
  <p>Click the link below to reset your password. The link is valid for 10 minutes.</p>
  <p><a href="%s" target="_blank">Reset Password</a></p>
  <p>If you didn't request this, you can safely ignore this email.</p>
</div>`, name, resetURL)

	return text, html
}
