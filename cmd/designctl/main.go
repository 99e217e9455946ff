// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command designctl administers the design settings store directly, without
// going through the HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/concretesite/designstore/internal/config"
	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/logging"
	"github.com/concretesite/designstore/internal/migration"
	"github.com/concretesite/designstore/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// app bundles the services a command works with.
type app struct {
	kv     kv.Store
	store  *design.Store
	engine *migration.Engine
}

func (a *app) Close() error {
	return a.kv.Close()
}

// opener builds the app for a command run.
type opener func(ctx context.Context) (*app, error)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

// openFromEnv opens the store configured by the DESIGN_* environment. The CLI
// never falls back to memory: changes there would be lost on exit.
func openFromEnv(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)

	kvCfg := cfg.KVConfig()
	kvCfg.FallbackToMemory = false
	store, _, err := kv.New(ctx, kvCfg, logger)
	if err != nil {
		return nil, err
	}

	logger = slog.New(logging.NewEventLogHandler(textHandler, store))
	slog.SetDefault(logger)

	designStore := design.NewStore(store, design.Options{
		MaxHistory: cfg.HistoryMax,
		Logger:     logger,
	})
	return &app{
		kv:    store,
		store: designStore,
		engine: migration.NewEngine(designStore, migration.Options{
			BackupTTL: cfg.BackupTTL(),
			Logger:    logger,
		}),
	}, nil
}

func newRootCmd(open opener) *cobra.Command {
	var author string

	root := &cobra.Command{
		Use:   "designctl",
		Short: "designctl manages storefront design settings",
		Long: `designctl reads and changes the design settings document, its history
and migration backups in the configured key-value store.`,
		Version:      version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&author, "author", "a", "cli", "author recorded on history entries")

	cmds := &commands{open: open, author: &author}
	root.AddCommand(
		cmds.migrateCmd(),
		cmds.statusCmd(),
		cmds.getCmd(),
		cmds.setCmd(),
		cmds.exportCmd(),
		cmds.importCmd(),
		cmds.historyCmd(),
		cmds.showCmd(),
		cmds.rollbackCmd(),
		cmds.diffCmd(),
		cmds.compactCmd(),
		cmds.backupsCmd(),
		cmds.restoreCmd(),
		cmds.eventsCmd(),
	)
	return root
}
