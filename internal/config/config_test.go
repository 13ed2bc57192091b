package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	writeConfig(t, `
environment: production
security:
  jwtsecret: super-secret
  fieldencryptionkey: `+validKey+`
http:
  port: 9090
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 90*24*time.Hour, cfg.Security.JWTTTL)
	assert.Equal(t, 90, cfg.Security.CookieTTLDays)
	assert.Equal(t, time.Duration(cfg.Security.CookieTTLDays)*24*time.Hour, cfg.Security.JWTTTL,
		"session cookie must expire with the token")
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.Security.ResetTokenTTL)
	assert.Equal(t, 10, cfg.RateLimit.LoginMaxAttempts)

	key, err := cfg.Security.FieldKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	writeConfig(t, `
security:
  fieldencryptionkey: `+validKey+`
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwtsecret")
}

func TestLoad_BadFieldKey(t *testing.T) {
	writeConfig(t, `
security:
  jwtsecret: super-secret
  fieldencryptionkey: abc123
`)

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "32 bytes") || strings.Contains(err.Error(), "decode"))
}
