// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/concretesite/designstore/internal/kv"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.KVType != kv.TypeSQLite {
		t.Errorf("KVType = %q, want %q", cfg.KVType, kv.TypeSQLite)
	}
	if cfg.SQLitePath != "./data/design.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.HistoryMax != 50 {
		t.Errorf("HistoryMax = %d, want 50", cfg.HistoryMax)
	}
	if cfg.BackupTTL() != 30*24*time.Hour {
		t.Errorf("BackupTTL = %v, want 720h", cfg.BackupTTL())
	}
	if !cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to true")
	}
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled should be false without a token")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "DESIGN_SERVER_HOST", "0.0.0.0")
	setEnv(t, "DESIGN_SERVER_PORT", "3000")
	setEnv(t, "DESIGN_ENV", "production")
	setEnv(t, "DESIGN_LOG_LEVEL", "debug")
	setEnv(t, "DESIGN_KV_TYPE", "redis")
	setEnv(t, "DESIGN_REDIS_URL", "redis://cache:6379/2")
	setEnv(t, "DESIGN_KV_TIMEOUT", "500ms")
	setEnv(t, "DESIGN_KV_RETRIES", "4")
	setEnv(t, "DESIGN_HISTORY_MAX", "20")
	setEnv(t, "DESIGN_BACKUP_TTL_DAYS", "7")
	setEnv(t, "DESIGN_ADMIN_TOKEN", "Xk9-secret-Token-2026")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Errorf("Env flags wrong for %q", cfg.Env)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if cfg.HistoryMax != 20 {
		t.Errorf("HistoryMax = %d, want 20", cfg.HistoryMax)
	}
	if cfg.BackupTTL() != 7*24*time.Hour {
		t.Errorf("BackupTTL = %v", cfg.BackupTTL())
	}

	kvCfg := cfg.KVConfig()
	if kvCfg.Type != kv.TypeRedis || kvCfg.RedisURL != "redis://cache:6379/2" {
		t.Errorf("KVConfig backend = %q %q", kvCfg.Type, kvCfg.RedisURL)
	}
	if kvCfg.Retry == nil || kvCfg.Retry.Timeout != 500*time.Millisecond || kvCfg.Retry.MaxRetries != 4 {
		t.Errorf("KVConfig retry = %+v", kvCfg.Retry)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"DESIGN_KV_TYPE": "etcd"},
			wantErr: "DESIGN_KV_TYPE",
		},
		{
			name:    "redis without url",
			env:     map[string]string{"DESIGN_KV_TYPE": "redis"},
			wantErr: "DESIGN_REDIS_URL",
		},
		{
			name:    "short token",
			env:     map[string]string{"DESIGN_ADMIN_TOKEN": "short"},
			wantErr: "at least 16 bytes",
		},
		{
			name:    "production without token",
			env:     map[string]string{"DESIGN_ENV": "production"},
			wantErr: "required in production",
		},
		{
			name:    "production with default token",
			env:     map[string]string{"DESIGN_ENV": "production", "DESIGN_ADMIN_TOKEN": "change-me-admin-token"},
			wantErr: "known default",
		},
		{
			name:    "zero history",
			env:     map[string]string{"DESIGN_HISTORY_MAX": "0"},
			wantErr: "DESIGN_HISTORY_MAX",
		},
		{
			name:    "bad port",
			env:     map[string]string{"DESIGN_SERVER_PORT": "70000"},
			wantErr: "DESIGN_SERVER_PORT",
		},
		{
			name:    "unparseable duration",
			env:     map[string]string{"DESIGN_KV_TIMEOUT": "soon"},
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := (Config{LogLevel: tt.in}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aaaaaaaaaaaaaaaa", false},
		{"aaaaAAAAaaaaAAAA", false},
		{"aaaaAAAA1111aaaa", true},
		{"a1!a1!a1!a1!a1!a", true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.in); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
