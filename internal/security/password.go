package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor applied to new password hashes.
const DefaultBcryptCost = 12

// HashPassword derives a salted bcrypt hash from the plaintext password.
// The plaintext is never logged or returned; a hashing failure aborts the
// calling operation.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost < DefaultBcryptCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// hash. bcrypt's comparison is constant time with respect to the mismatch
// position. Errors other than a mismatch (a corrupt stored hash) surface.
func VerifyPassword(password string, hash []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}
