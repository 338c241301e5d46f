package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWT.SecretKey)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 24*time.Hour, cfg.EmailVerificationTTL())
	assert.Equal(t, time.Hour, cfg.PasswordResetTTL())
	assert.False(t, cfg.Server.Debug)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Limits.Window)
	assert.Equal(t, 5, cfg.Limits.MaxRequests)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: "9090"
  debug: true
database:
  host: db
  port: 5433
  user: app
  password: pw
  name: curriculum
  sslmode: disable
jwt:
  secret_key: change-me-jwt-secret
  access_ttl_minutes: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, "postgres://app:pw@db:5433/curriculum?sslmode=disable", cfg.DatabaseURL())
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.JWT.SecretKey = "s"
		c.JWT.Algorithm = "HS256"
		c.JWT.AccessTTLMinutes = 15
		c.JWT.RefreshTTLDays = 7
		c.Tokens.EmailVerificationTTLHours = 24
		c.Tokens.PasswordResetTTLHours = 1
		c.Password.MaxConcurrent = 1
		c.Limits.Window = time.Hour
		c.Limits.MaxRequests = 5
		return c
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.JWT.Algorithm = "RS256"
	assert.Error(t, c.Validate(), "asymmetric algorithms are not supported")

	c = valid()
	c.JWT.SecretKey = insecureDefaultSecret
	assert.Error(t, c.Validate())
	c.Server.Debug = true
	assert.NoError(t, c.Validate())

	c = valid()
	c.JWT.RefreshTTLDays = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Limits.Window = 0
	assert.EqualError(t, c.Validate(), "limits.window must be positive")

	c = valid()
	c.Limits.MaxRequests = 0
	assert.EqualError(t, c.Validate(), "limits.max_requests must be positive")
}
