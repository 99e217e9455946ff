package kv

import (
	"context"
	"testing"

	"github.com/concretesite/designstore/internal/testutil"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	tests := []struct {
		name        string
		cfg         Config
		wantBackend string
		wantErr     bool
	}{
		{
			name:        "default memory",
			cfg:         Config{},
			wantBackend: TypeMemory,
		},
		{
			name:        "sqlite",
			cfg:         Config{Type: TypeSQLite, SQLitePath: t.TempDir() + "/kv.db"},
			wantBackend: TypeSQLite,
		},
		{
			name:    "redis without url fails",
			cfg:     Config{Type: TypeRedis},
			wantErr: true,
		},
		{
			name:        "redis without url falls back",
			cfg:         Config{Type: TypeRedis, FallbackToMemory: true},
			wantBackend: TypeMemory,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Type: "etcd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend, err := New(ctx, tt.cfg, logger)
			if tt.wantErr {
				if err == nil {
					_ = s.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer func() { _ = s.Close() }()

			if backend != tt.wantBackend {
				t.Errorf("backend = %q, want %q", backend, tt.wantBackend)
			}
		})
	}
}

func TestNew_WrapsWithRetry(t *testing.T) {
	cfg := DefaultConfig()
	s, _, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok := s.(*RetryStore); !ok {
		t.Errorf("expected *RetryStore, got %T", s)
	}
	if _, ok := Unwrap(s).(*MemoryStore); !ok {
		t.Errorf("expected memory store beneath retry, got %T", Unwrap(s))
	}
}
