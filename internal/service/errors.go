package service

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike; callers must not be able to tell which.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidResetToken = errors.New("token is invalid or expired")
	ErrTooManyAttempts   = errors.New("too many attempts, try again later")
	ErrDeliveryFailed    = errors.New("could not deliver reset email")

	// ErrValidation is wrapped with field-level detail.
	ErrValidation = errors.New("validation failed")
)
