package models

import "time"

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleGuide     UserRole = "guide"
	UserRoleLeadGuide UserRole = "lead-guide"
	UserRoleAdmin     UserRole = "admin"
)

// ValidRole reports whether role belongs to the closed role set.
// Unknown roles are rejected before any write reaches the store.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleUser, UserRoleGuide, UserRoleLeadGuide, UserRoleAdmin:
		return true
	}
	return false
}

// CreditCard holds the payment details attached to a profile. Number and
// CVV are persisted only as ciphertext, each with the IV that produced it.
type CreditCard struct {
	CardHolder       string
	ExpiryDate       string
	NumberCiphertext []byte
	NumberIV         []byte
	CVVCiphertext    []byte
	CVVIV            []byte
}

type User struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           []byte
	Role                   UserRole
	Active                 bool
	Phone                  *string
	CreditCard             CreditCard
	PasswordChangedAt      *time.Time
	PasswordResetTokenHash []byte
	PasswordResetExpiresAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issuance time. Comparison is at second precision because JWT
// iat claims carry unix-second resolution.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Truncate(time.Second).Before(u.PasswordChangedAt.Truncate(time.Second))
}

// HasPendingReset reports whether a reset token hash and expiry are both set.
// The pair is written and cleared together; a half-set pair is a store bug.
func (u User) HasPendingReset() bool {
	return len(u.PasswordResetTokenHash) > 0 && u.PasswordResetExpiresAt != nil
}
