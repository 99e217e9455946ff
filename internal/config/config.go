// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/concretesite/designstore/internal/kv"
)

// knownWeakTokens contains example tokens that must be rejected in production.
var knownWeakTokens = []string{
	"change-me-admin-token",
	"REPLACE_WITH_YOUR_OWN_TOKEN",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ServerHost string `env:"DESIGN_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"DESIGN_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"DESIGN_ENV" envDefault:"development"`
	LogLevel   string `env:"DESIGN_LOG_LEVEL" envDefault:"info"`

	// KV backend configuration
	KVType           string        `env:"DESIGN_KV_TYPE" envDefault:"sqlite"`               // memory, redis or sqlite
	RedisURL         string        `env:"DESIGN_REDIS_URL"`                                 // Required when KVType is redis
	KVPrefix         string        `env:"DESIGN_KV_PREFIX" envDefault:"site:"`              // Redis key namespace
	SQLitePath       string        `env:"DESIGN_SQLITE_PATH" envDefault:"./data/design.db"` // SQLite database file
	KVTimeout        time.Duration `env:"DESIGN_KV_TIMEOUT" envDefault:"2s"`                // Per-attempt timeout
	KVRetries        uint64        `env:"DESIGN_KV_RETRIES" envDefault:"2"`                 // Retries after the first attempt
	KVFallbackMemory bool          `env:"DESIGN_KV_FALLBACK_MEMORY" envDefault:"true"`      // Use memory when the backend is down

	// Design settings
	HistoryMax     int  `env:"DESIGN_HISTORY_MAX" envDefault:"50"`
	BackupTTLDays  int  `env:"DESIGN_BACKUP_TTL_DAYS" envDefault:"30"`
	MigrateOnStart bool `env:"DESIGN_MIGRATE_ON_START" envDefault:"true"`

	// API access
	AdminToken     string        `env:"DESIGN_ADMIN_TOKEN"`               // Bearer token for the admin API
	RateLimit      float64       `env:"DESIGN_RATE_LIMIT" envDefault:"5"` // Mutating requests per second per IP
	RateLimitBurst int           `env:"DESIGN_RATE_LIMIT_BURST" envDefault:"10"`
	RequestTimeout time.Duration `env:"DESIGN_REQUEST_TIMEOUT" envDefault:"15s"`
}

// MinAdminTokenLength is the minimum length of the admin token.
const MinAdminTokenLength = 16

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// BackupTTL returns the pre-migration backup lifetime.
func (c Config) BackupTTL() time.Duration {
	return time.Duration(c.BackupTTLDays) * 24 * time.Hour
}

// AuthEnabled reports whether the admin API requires a token.
func (c Config) AuthEnabled() bool {
	return c.AdminToken != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// KVConfig returns the store factory configuration.
func (c Config) KVConfig() kv.Config {
	cfg := kv.DefaultConfig()
	cfg.Type = c.KVType
	cfg.RedisURL = c.RedisURL
	cfg.Prefix = c.KVPrefix
	cfg.SQLitePath = c.SQLitePath
	cfg.FallbackToMemory = c.KVFallbackMemory
	cfg.Retry.Timeout = c.KVTimeout
	cfg.Retry.MaxRetries = c.KVRetries
	return cfg
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AuthEnabled() && !hasMinimumEntropy(cfg.AdminToken) {
		slog.Warn("DESIGN_ADMIN_TOKEN has low character diversity; " +
			"consider generating a random token with: openssl rand -base64 24")
	}
	return cfg, nil
}

// Validate checks value ranges and production requirements.
func (c *Config) Validate() error {
	var errs []error

	switch c.KVType {
	case kv.TypeMemory, kv.TypeSQLite:
	case kv.TypeRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("DESIGN_REDIS_URL is required when DESIGN_KV_TYPE is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("DESIGN_KV_TYPE must be memory, redis or sqlite, got %q", c.KVType))
	}

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("DESIGN_SERVER_PORT out of range: %d", c.ServerPort))
	}
	if c.HistoryMax < 1 {
		errs = append(errs, fmt.Errorf("DESIGN_HISTORY_MAX must be positive, got %d", c.HistoryMax))
	}
	if c.BackupTTLDays < 1 {
		errs = append(errs, fmt.Errorf("DESIGN_BACKUP_TTL_DAYS must be positive, got %d", c.BackupTTLDays))
	}
	if c.KVTimeout <= 0 {
		errs = append(errs, errors.New("DESIGN_KV_TIMEOUT must be positive"))
	}
	if c.RateLimit <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("DESIGN_RATE_LIMIT and DESIGN_RATE_LIMIT_BURST must be positive"))
	}

	if c.AdminToken != "" && len(c.AdminToken) < MinAdminTokenLength {
		errs = append(errs, fmt.Errorf("DESIGN_ADMIN_TOKEN must be at least %d bytes long, got %d bytes",
			MinAdminTokenLength, len(c.AdminToken)))
	}
	if c.IsProduction() {
		if c.AdminToken == "" {
			errs = append(errs, errors.New("DESIGN_ADMIN_TOKEN is required in production"))
		}
		for _, weak := range knownWeakTokens {
			if c.AdminToken == weak {
				errs = append(errs, errors.New("DESIGN_ADMIN_TOKEN is a known default value and must not be used"))
			}
		}
	}

	return errors.Join(errs...)
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
