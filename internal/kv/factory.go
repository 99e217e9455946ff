// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package kv

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend types.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
)

// Config holds configuration for store creation.
type Config struct {
	// Type is the backend: "memory", "redis" or "sqlite".
	Type string

	// RedisURL is the Redis connection URL (redis only).
	RedisURL string

	// Prefix is prepended to every key (redis only).
	Prefix string

	// SQLitePath is the database file (sqlite only).
	SQLitePath string

	// FallbackToMemory uses a memory store when the configured backend
	// cannot be opened instead of failing.
	FallbackToMemory bool

	// CleanupInterval is the expiry sweep interval for the memory store.
	CleanupInterval time.Duration

	// Retry, when non-nil, wraps the backend in a RetryStore.
	Retry *RetryOptions
}

// DefaultConfig returns an in-memory configuration with default retries.
func DefaultConfig() Config {
	retry := DefaultRetryOptions()
	return Config{
		Type:            TypeMemory,
		CleanupInterval: time.Minute,
		Retry:           &retry,
	}
}

// New opens the configured backend. It returns the store and the name of the
// backend actually in use, which differs from cfg.Type after a fallback.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Store, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, backend, err := open(ctx, cfg)
	if err != nil {
		if !cfg.FallbackToMemory {
			return nil, "", err
		}
		logger.Warn("kv backend unavailable, falling back to memory",
			"backend", cfg.Type, "error", err)
		store, backend = NewMemoryStore(cfg.CleanupInterval), TypeMemory
	}

	if cfg.Retry != nil {
		store = WithRetry(store, *cfg.Retry)
	}
	return store, backend, nil
}

func open(ctx context.Context, cfg Config) (Store, string, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryStore(cfg.CleanupInterval), TypeMemory, nil
	case TypeRedis:
		opts := DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		opts.Prefix = cfg.Prefix
		s, err := NewRedisStore(opts)
		if err != nil {
			return nil, "", fmt.Errorf("connecting to redis: %w", err)
		}
		return s, TypeRedis, nil
	case TypeSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, TypeSQLite, nil
	default:
		return nil, "", fmt.Errorf("unknown kv backend %q", cfg.Type)
	}
}
