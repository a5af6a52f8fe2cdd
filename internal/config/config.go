package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // Postgres; SQLite is used when empty
	SQLitePath  string
	RedisURL    string // Admin sessions; kept in memory when empty

	// Admin credentials
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string // bcrypt, takes precedence over AdminPassword

	SessionTTL   time.Duration
	CookieSecure bool
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "5000"),
		Env:               getEnv("ENV", "development"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", "./data/anonq.db"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AdminUsername:     strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		SessionTTL:        24 * time.Hour,
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}

	cfg.CookieSecure = getEnv("COOKIE_SECURE", boolString(cfg.Env == "production")) == "true"

	// In production, require admin credentials
	if cfg.Env == "production" {
		if cfg.AdminUsername == "" {
			panic("ADMIN_USERNAME is required in production")
		}
		if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
			panic("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AdminConfigured reports whether admin login can succeed at all.
func (c *Config) AdminConfigured() bool {
	return c.AdminUsername != "" && (c.AdminPassword != "" || c.AdminPasswordHash != "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
