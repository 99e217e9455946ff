package kv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("connection reset")

// flakyStore fails the first `failures` Get and Set calls.
type flakyStore struct {
	*MemoryStore
	failures atomic.Int32
	calls    atomic.Int32
	block    bool
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failures.Add(-1) >= 0 {
		return nil, errTransient
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errTransient
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

func fastRetry(retries uint64) RetryOptions {
	return RetryOptions{
		Timeout:    50 * time.Millisecond,
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestRetryStore_RecoversFromTransientErrors(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0)}
	inner.failures.Store(2)
	s := WithRetry(inner, fastRetry(3))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, int32(3), inner.calls.Load())

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestRetryStore_GivesUp(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0)}
	inner.failures.Store(10)
	s := WithRetry(inner, fastRetry(2))

	err := s.Set(context.Background(), "k", []byte("v"), 0)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryStore_NotFoundIsFinal(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0)}
	s := WithRetry(inner, fastRetry(5))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRetryStore_AttemptTimeoutIsRetried(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0), block: true}
	s := WithRetry(inner, fastRetry(2))

	start := time.Now()
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetryStore_CallerCancellationIsFinal(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(0)}
	inner.failures.Store(10)
	s := WithRetry(inner, fastRetry(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, "k", []byte("v"), 0)
	assert.Error(t, err)
	assert.LessOrEqual(t, inner.calls.Load(), int32(1))
}

func TestUnwrap(t *testing.T) {
	mem := NewMemoryStore(0)
	wrapped := WithRetry(WithRetry(mem, fastRetry(1)), fastRetry(1))
	assert.Same(t, mem, Unwrap(wrapped))
	assert.Same(t, mem, Unwrap(mem))
}
