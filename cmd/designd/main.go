// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/concretesite/designstore/internal/config"
	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/handler"
	"github.com/concretesite/designstore/internal/handler/api"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/logging"
	"github.com/concretesite/designstore/internal/middleware"
	"github.com/concretesite/designstore/internal/migration"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/scheduler"
	"github.com/concretesite/designstore/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const migrateAuthor = "system"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "designd - design settings service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_KV_TYPE          memory|redis|sqlite (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_REDIS_URL        Redis URL (required for redis)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_SQLITE_PATH      SQLite database path (default: ./data/design.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_ENV              development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_ADMIN_TOKEN      Bearer token for the API (required in production)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_HISTORY_MAX      History entries kept (default: 50)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DESIGN_BACKUP_TTL_DAYS  Migration backup lifetime (default: 30)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("designd %s\n", buildInfo())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	info := buildInfo()

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx := context.Background()

	var dataDir string
	if cfg.KVType == kv.TypeSQLite {
		dataDir = filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("opening kv store", "backend", cfg.KVType)
	store, backend, err := kv.New(ctx, cfg.KVConfig(), logger)
	if err != nil {
		return fmt.Errorf("opening kv store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("error closing kv store", "error", err)
		}
	}()
	if backend != kv.TypeSQLite {
		dataDir = ""
	}

	// Upgrade logger to also record WARN and ERROR logs in the event log
	logger = slog.New(logging.NewEventLogHandler(textHandler, store))
	slog.SetDefault(logger)
	slog.Info("kv store ready", "backend", backend, "category", model.EventCategoryStorage)

	designStore := design.NewStore(store, design.Options{
		MaxHistory: cfg.HistoryMax,
		Logger:     logger,
	})
	engine := migration.NewEngine(designStore, migration.Options{
		BackupTTL: cfg.BackupTTL(),
		Logger:    logger,
	})

	if cfg.MigrateOnStart {
		res := engine.Migrate(ctx, migrateAuthor)
		if !res.Success {
			return fmt.Errorf("migrating design settings: %s", res.Message)
		}
		slog.Info("design settings ready", "version", res.ToVersion, "message", res.Message)
	}

	sched := scheduler.New(logger)
	for _, job := range scheduler.MaintenanceJobs(designStore, logger) {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	healthHandler := handler.NewHealthHandler(store, backend, dataDir, info)
	apiHandler := api.NewHandler(api.Config{
		Store:   designStore,
		Engine:  engine,
		Backend: backend,
		Version: info,
		Logger:  logger,
	})
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)

	if !cfg.AuthEnabled() {
		slog.Warn("admin token not set, design API is unauthenticated",
			"category", model.EventCategorySystem)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", apiHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(middleware.Author)

			r.Get("/jobs", func(w http.ResponseWriter, _ *http.Request) {
				jobs := sched.Jobs()
				api.WriteSuccess(w, jobs, &api.Meta{Total: len(jobs)})
			})
			r.Route("/design", func(r chi.Router) {
				apiHandler.Routes(r, rateLimiter.Middleware())
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteNotFound(w, "Resource not found")
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
