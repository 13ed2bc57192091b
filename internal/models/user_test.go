package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	for _, role := range []UserRole{UserRoleUser, UserRoleGuide, UserRoleLeadGuide, UserRoleAdmin} {
		assert.True(t, ValidRole(role), "role %q", role)
	}
	assert.False(t, ValidRole("superadmin"))
	assert.False(t, ValidRole(""))
}

func TestChangedPasswordAfter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never changed", func(t *testing.T) {
		user := User{}
		assert.False(t, user.ChangedPasswordAfter(base))
	})

	t.Run("changed after issuance revokes", func(t *testing.T) {
		changed := base.Add(time.Minute)
		user := User{PasswordChangedAt: &changed}
		assert.True(t, user.ChangedPasswordAfter(base))
	})

	t.Run("changed before issuance keeps token valid", func(t *testing.T) {
		changed := base.Add(-time.Minute)
		user := User{PasswordChangedAt: &changed}
		assert.False(t, user.ChangedPasswordAfter(base))
	})

	t.Run("sub-second skew is ignored", func(t *testing.T) {
		changed := base.Add(500 * time.Millisecond)
		user := User{PasswordChangedAt: &changed}
		assert.False(t, user.ChangedPasswordAfter(base))
	})
}

func TestHasPendingReset(t *testing.T) {
	expiry := time.Now().Add(10 * time.Minute)

	assert.False(t, User{}.HasPendingReset())
	assert.True(t, User{
		PasswordResetTokenHash: []byte{0x01},
		PasswordResetExpiresAt: &expiry,
	}.HasPendingReset())
}
