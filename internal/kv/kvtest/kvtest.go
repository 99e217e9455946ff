// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kvtest provides kv.Store doubles for tests.
package kvtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/concretesite/designstore/internal/kv"
)

// ErrInjected is returned by FailingStore for operations configured to fail.
var ErrInjected = errors.New("kvtest: injected failure")

// Op names an operation that FailingStore can fail.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpExpire Op = "expire"
	OpKeys   Op = "keys"
)

// FailingStore wraps a memory store and fails selected operations on keys
// with a given prefix. The zero prefix matches every key.
type FailingStore struct {
	*kv.MemoryStore

	mu    sync.Mutex
	rules map[Op][]string
	calls []string
}

// NewFailingStore returns a FailingStore with no failure rules.
func NewFailingStore() *FailingStore {
	return &FailingStore{
		MemoryStore: kv.NewMemoryStore(0),
		rules:       make(map[Op][]string),
	}
}

// Fail makes op fail for keys starting with prefix.
func (s *FailingStore) Fail(op Op, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[op] = append(s.rules[op], prefix)
}

// Reset removes every failure rule.
func (s *FailingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[Op][]string)
}

// Calls returns the operations seen so far as "op key" strings.
func (s *FailingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *FailingStore) check(op Op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, string(op)+" "+key)
	for _, prefix := range s.rules[op] {
		if strings.HasPrefix(key, prefix) {
			return ErrInjected
		}
	}
	return nil
}

func (s *FailingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(OpGet, key); err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *FailingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.check(OpSet, key); err != nil {
		return err
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *FailingStore) Delete(ctx context.Context, key string) error {
	if err := s.check(OpDelete, key); err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *FailingStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.check(OpExpire, key); err != nil {
		return err
	}
	return s.MemoryStore.Expire(ctx, key, ttl)
}

func (s *FailingStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := s.check(OpKeys, prefix); err != nil {
		return nil, err
	}
	return s.MemoryStore.Keys(ctx, prefix)
}

var _ kv.Store = (*FailingStore)(nil)
