// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is a thread-safe in-memory Store.
// It is the default for development and the backing store of most tests.
type MemoryStore struct {
	data   sync.Map
	stopCh chan struct{}
	closed atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// memoryEntry holds a value with its expiration time.
// A zero expiresAt means the entry never expires.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates a memory store. When cleanupInterval is positive a
// goroutine removes expired entries on that interval until Close.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{stopCh: make(chan struct{})}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Get retrieves a value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	val, ok := s.data.Load(key)
	if !ok {
		s.misses.Add(1)
		return nil, ErrNotFound
	}

	entry := val.(*memoryEntry)
	if entry.expired(time.Now()) {
		s.data.CompareAndDelete(key, entry)
		s.misses.Add(1)
		return nil, ErrNotFound
	}

	s.hits.Add(1)
	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	entry := &memoryEntry{value: valueCopy}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.data.Store(key, entry)
	s.sets.Add(1)
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.data.Delete(key)
	return nil
}

// Expire sets the TTL of an existing key. A non-positive ttl removes the key.
func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}

	val, ok := s.data.Load(key)
	if !ok {
		return ErrNotFound
	}
	entry := val.(*memoryEntry)
	now := time.Now()
	if entry.expired(now) {
		s.data.CompareAndDelete(key, entry)
		return ErrNotFound
	}

	if ttl <= 0 {
		s.data.CompareAndDelete(key, entry)
		return nil
	}

	updated := &memoryEntry{value: entry.value, expiresAt: now.Add(ttl)}
	// A concurrent Set wins and keeps its own TTL.
	s.data.CompareAndSwap(key, entry, updated)
	return nil
}

// Keys returns all live keys with the prefix.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	now := time.Now()
	var keys []string
	s.data.Range(func(key, value any) bool {
		if !value.(*memoryEntry).expired(now) {
			keys = append(keys, key.(string))
		}
		return true
	})
	return filterSorted(keys, prefix), nil
}

// Ping reports ErrClosed after Close, nil otherwise.
func (s *MemoryStore) Ping(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	return nil
}

// Stats returns current operation counters.
func (s *MemoryStore) Stats() Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    s.sets.Load(),
		Items:   s.count(),
		HitRate: hitRate(hits, misses),
	}
}

func (s *MemoryStore) count() int {
	n := 0
	s.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// removeExpired removes all expired entries and returns how many were dropped.
func (s *MemoryStore) removeExpired() int {
	now := time.Now()
	removed := 0
	s.data.Range(func(key, value any) bool {
		entry := value.(*memoryEntry)
		if entry.expired(now) && s.data.CompareAndDelete(key, entry) {
			removed++
		}
		return true
	})
	return removed
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCh:
			return
		}
	}
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ StatsProvider = (*MemoryStore)(nil)
)
