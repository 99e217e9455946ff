// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryOptions bounds each store call and retries transient failures.
type RetryOptions struct {
	// Timeout bounds a single attempt (0 = no per-attempt timeout).
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	// BaseDelay is the first backoff delay; later delays double.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay (0 = uncapped).
	MaxDelay time.Duration
}

// DefaultRetryOptions returns the options used when none are configured.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   time.Second,
	}
}

// RetryStore wraps a Store with per-attempt timeouts and exponential backoff.
// ErrNotFound, ErrClosed and cancellation of the caller's context are final.
type RetryStore struct {
	inner Store
	opts  RetryOptions
}

// WithRetry wraps inner.
func WithRetry(inner Store, opts RetryOptions) *RetryStore {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultRetryOptions().BaseDelay
	}
	return &RetryStore{inner: inner, opts: opts}
}

// Unwrap returns the wrapped store.
func (s *RetryStore) Unwrap() Store {
	return s.inner
}

func (s *RetryStore) backoff() retry.Backoff {
	b := retry.NewExponential(s.opts.BaseDelay)
	if s.opts.MaxDelay > 0 {
		b = retry.WithCappedDuration(s.opts.MaxDelay, b)
	}
	return retry.WithMaxRetries(s.opts.MaxRetries, b)
}

// do runs fn until it succeeds, fails permanently, or retries run out.
func (s *RetryStore) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attemptCtx := ctx
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil || !isTransient(ctx, err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// isTransient reports whether err is worth another attempt.
func isTransient(parent context.Context, err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrClosed) {
		return false
	}
	return parent.Err() == nil
}

// Get retrieves a value.
func (s *RetryStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.do(ctx, func(ctx context.Context) error {
		v, err := s.inner.Get(ctx, key)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Set stores a value.
func (s *RetryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.Set(ctx, key, value, ttl)
	})
}

// Delete removes a key.
func (s *RetryStore) Delete(ctx context.Context, key string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.Delete(ctx, key)
	})
}

// Expire sets the TTL of an existing key.
func (s *RetryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.Expire(ctx, key, ttl)
	})
}

// Keys lists keys with the prefix.
func (s *RetryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := s.do(ctx, func(ctx context.Context) error {
		keys, err := s.inner.Keys(ctx, prefix)
		if err != nil {
			return err
		}
		out = keys
		return nil
	})
	return out, err
}

// Ping is not retried; readiness checks want the current answer.
func (s *RetryStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped store.
func (s *RetryStore) Close() error {
	return s.inner.Close()
}

// Unwrap returns the innermost store beneath any RetryStore layers.
func Unwrap(s Store) Store {
	for {
		w, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return s
		}
		s = w.Unwrap()
	}
}

var _ Store = (*RetryStore)(nil)
