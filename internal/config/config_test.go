package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "ADMIN_USERNAME", "ADMIN_PASSWORD", "ADMIN_PASSWORD_HASH", "SESSION_TTL", "COOKIE_SECURE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "./data/anonq.db", cfg.SQLitePath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.AdminConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_USERNAME", " admin ")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("COOKIE_SECURE", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.AdminConfigured())
}

func TestLoadIgnoresInvalidSessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoadProductionRequiresAdmin(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	require.Panics(t, func() { Load() })
}

func TestLoadProductionSecureCookiesByDefault(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuu")
	t.Setenv("COOKIE_SECURE", "")

	cfg := Load()

	assert.True(t, cfg.CookieSecure)
}
