package kv

import (
	"context"
	"os"
	"testing"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("DESIGN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: DESIGN_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	url := skipIfNoRedis(t)

	opts := DefaultRedisOptions()
	opts.URL = url
	opts.Prefix = "designstore-test:" + t.Name() + ":"
	s, err := NewRedisStore(opts)
	if err != nil {
		t.Fatalf("failed to create Redis store: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.Keys(ctx, "")
		for _, k := range keys {
			_ = s.Delete(ctx, k)
		}
		_ = s.Close()
	})
	return s
}

func TestRedisStore_Contract(t *testing.T) {
	runStoreContract(t, newTestRedis(t))
}

func TestRedisStore_KeysStripPrefix(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	if err := s.Set(ctx, "design:backup:1", []byte("{}"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	keys, err := s.Keys(ctx, "design:backup:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "design:backup:1" {
		t.Errorf("Keys = %v, want [design:backup:1]", keys)
	}
}

func TestNewRedisStore_RequiresURL(t *testing.T) {
	if _, err := NewRedisStore(RedisOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
}
