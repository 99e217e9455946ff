package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), t.TempDir()+"/kv.db")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "old", []byte("v"), time.Minute)
	_ = s.Set(ctx, "keep", []byte("v"), 0)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired key to read as missing, got %v", err)
	}

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired removed %d rows, want 1", n)
	}

	keys, _ := s.Keys(ctx, "")
	if len(keys) != 1 || keys[0] != "keep" {
		t.Errorf("Keys = %v, want [keep]", keys)
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := t.TempDir() + "/kv.db"
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := s.Set(ctx, "design:settings:current", []byte(`{"version":"2.0.0"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = s.Close()

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "design:settings:current")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `{"version":"2.0.0"}` {
		t.Errorf("Get = %s", got)
	}
}

func TestSQLiteStore_KeysPrefixIsLiteral(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a%b:1", []byte("v"), 0)
	_ = s.Set(ctx, "axb:1", []byte("v"), 0)

	keys, err := s.Keys(ctx, "a%b:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "a%b:1" {
		t.Errorf("Keys = %v, want [a%%b:1]", keys)
	}
}

func TestSQLiteStore_Closed(t *testing.T) {
	s := newTestSQLite(t)
	_ = s.Close()

	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
}
