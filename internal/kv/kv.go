// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kv provides the key-value storage backends that hold design settings,
// history entries, backups and migration metadata.
package kv

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Store defines the interface for key-value backends.
// All implementations must be safe for concurrent use.
// Values are opaque bytes; callers store JSON.
type Store interface {
	// Get retrieves a value.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A TTL of 0 stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Expire sets the time-to-live of an existing key.
	// Returns ErrNotFound if the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Keys returns all live keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// StatsProvider is an optional interface for stores that count operations.
type StatsProvider interface {
	Stats() Stats
}

// Stats holds operation counters for a store.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// Error represents an error type for kv operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates the key does not exist or has expired.
	ErrNotFound Error = "kv: key not found"

	// ErrClosed indicates the store has been closed.
	ErrClosed Error = "kv: store closed"
)

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

func filterSorted(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
