// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package migration upgrades stored design settings to the current schema.
//
// Each run backs up the raw document before anything is written, transforms
// it in memory, and replaces the current document with a single save. A
// failure at any step leaves the pre-migration document current.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/util"
)

// DefaultBackupTTL is how long pre-migration backups are kept.
const DefaultBackupTTL = 30 * 24 * time.Hour

// Result messages.
const (
	MessageNoMigration = "No migration needed"
	MessageInitialized = "Initialized default design settings"
)

// ErrBackupNotFound is returned when a backup id does not exist or has expired.
var ErrBackupNotFound = errors.New("backup not found")

// Step upgrades a raw document from one schema version to the next.
type Step struct {
	From        string
	To          string
	Description string
	Apply       func(raw []byte) ([]byte, error)
}

// DefaultSteps returns the registered upgrade path.
func DefaultSteps() []Step {
	return []Step{
		{
			From:        VersionLegacy,
			To:          "2.0.0",
			Description: "Map per-section legacy backgrounds, palette and fonts onto section configs",
			Apply:       migrateLegacy,
		},
	}
}

// Result reports the outcome of Migrate.
type Result struct {
	Success     bool   `json:"success"`
	FromVersion string `json:"fromVersion"`
	ToVersion   string `json:"toVersion"`
	BackupID    string `json:"backupId,omitempty"`
	Message     string `json:"message"`
}

// Status describes whether the stored document needs migrating.
type Status struct {
	CurrentVersion string                   `json:"currentVersion"`
	TargetVersion  string                   `json:"targetVersion"`
	NeedsMigration bool                     `json:"needsMigration"`
	Initialized    bool                     `json:"initialized"`
	LastMigration  *model.MigrationMetadata `json:"lastMigration,omitempty"`
}

// Options configures an Engine.
type Options struct {
	// BackupTTL is the lifetime of pre-migration backups (0 = DefaultBackupTTL).
	BackupTTL time.Duration

	// Steps overrides DefaultSteps.
	Steps []Step

	Logger *slog.Logger
}

// Engine runs migrations against a design.Store.
type Engine struct {
	store     *design.Store
	kv        kv.Store
	steps     map[string]Step
	backupTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine writing through store.
func NewEngine(store *design.Store, opts Options) *Engine {
	if opts.BackupTTL <= 0 {
		opts.BackupTTL = DefaultBackupTTL
	}
	if opts.Steps == nil {
		opts.Steps = DefaultSteps()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	steps := make(map[string]Step, len(opts.Steps))
	for _, s := range opts.Steps {
		steps[s.From] = s
	}

	return &Engine{
		store:     store,
		kv:        store.KV(),
		steps:     steps,
		backupTTL: opts.BackupTTL,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Migrate brings the stored document to model.CurrentSchemaVersion.
// Failures are reported in the result, never as a partial write.
func (e *Engine) Migrate(ctx context.Context, author string) Result {
	res := Result{ToVersion: model.CurrentSchemaVersion}
	fail := func(err error) Result {
		res.Success = false
		res.Message = err.Error()
		e.logger.Error("design settings migration failed",
			"category", model.EventCategoryMigration, "from", res.FromVersion, "error", err)
		return res
	}

	raw, err := e.store.LoadRaw(ctx)
	if errors.Is(err, design.ErrNoDocument) {
		if err := e.store.Save(ctx, model.DefaultSettings(), author, MessageInitialized); err != nil {
			return fail(err)
		}
		res.Success = true
		res.FromVersion = model.CurrentSchemaVersion
		res.Message = MessageInitialized
		e.logger.Info("design settings initialized", "version", model.CurrentSchemaVersion)
		return res
	}
	if err != nil {
		return fail(err)
	}
	if !gjson.ValidBytes(raw) {
		return fail(errors.New("stored design settings are not valid JSON"))
	}

	res.FromVersion = detectVersion(raw)
	if res.FromVersion == model.CurrentSchemaVersion {
		res.Success = true
		res.Message = MessageNoMigration
		return res
	}
	if isNewer(res.FromVersion) {
		return fail(fmt.Errorf("stored version %s is newer than supported version %s",
			res.FromVersion, model.CurrentSchemaVersion))
	}

	path, err := e.plan(res.FromVersion)
	if err != nil {
		return fail(err)
	}

	backup, err := e.createBackup(ctx, raw)
	if err != nil {
		return fail(err)
	}
	res.BackupID = backup.ID

	doc, err := upgrade(raw, path)
	if err != nil {
		return fail(err)
	}

	description := fmt.Sprintf("Migrated from %s to %s", res.FromVersion, model.CurrentSchemaVersion)
	if err := e.store.Save(ctx, doc, author, description); err != nil {
		return fail(err)
	}

	meta := model.MigrationMetadata{
		FromVersion: res.FromVersion,
		ToVersion:   model.CurrentSchemaVersion,
		Timestamp:   e.now().UTC(),
		BackupID:    backup.ID,
		Author:      author,
	}
	if err := kv.SetJSON(ctx, e.kv, design.KeyMigrationMetadata, meta, 0); err != nil {
		e.logger.Warn("failed to record migration metadata",
			"category", model.EventCategoryMigration, "error", err)
	}

	res.Success = true
	res.Message = description
	e.logger.Info("design settings migrated",
		"from", res.FromVersion, "to", res.ToVersion, "backup_id", backup.ID)
	return res
}

// plan resolves the chain of steps leading from version to the current
// schema without touching any data.
func (e *Engine) plan(version string) ([]Step, error) {
	var path []Step
	seen := make(map[string]bool)
	for version != model.CurrentSchemaVersion {
		if seen[version] {
			return nil, fmt.Errorf("migration steps loop at version %s", version)
		}
		seen[version] = true

		step, ok := e.steps[version]
		if !ok {
			return nil, fmt.Errorf("no migration path from version %s", version)
		}
		path = append(path, step)
		version = step.To
	}
	return path, nil
}

// upgrade applies path to raw and decodes the result.
func upgrade(raw []byte, path []Step) (*model.SettingsDocument, error) {
	data := raw
	for _, step := range path {
		next, err := step.Apply(data)
		if err != nil {
			return nil, fmt.Errorf("migrating %s to %s: %w", step.From, step.To, err)
		}
		data = next
	}

	doc, err := model.DecodeSettings(data)
	if err != nil {
		return nil, fmt.Errorf("decoding migrated settings: %w", err)
	}
	doc.Version = model.CurrentSchemaVersion
	return doc, nil
}

func (e *Engine) createBackup(ctx context.Context, raw []byte) (*model.Backup, error) {
	now := e.now().UTC()
	backup := &model.Backup{
		ID:        util.NewID(now),
		Settings:  append([]byte(nil), raw...),
		Timestamp: now,
		ExpiresAt: now.Add(e.backupTTL),
	}

	key := design.BackupKey(backup.ID)
	if err := kv.SetJSON(ctx, e.kv, key, backup, 0); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	if err := e.kv.Expire(ctx, key, e.backupTTL); err != nil {
		e.logger.Warn("failed to set backup expiry",
			"category", model.EventCategoryMigration, "backup_id", backup.ID, "error", err)
	}
	return backup, nil
}

// RestoreFromBackup makes a backup's raw document current again.
func (e *Engine) RestoreFromBackup(ctx context.Context, id, author string) (*model.SettingsDocument, error) {
	backup, err := e.GetBackup(ctx, id)
	if err != nil {
		return nil, err
	}

	description := "Restored from backup created " + backup.Timestamp.Format(time.RFC3339)
	if err := e.store.SaveRaw(ctx, backup.Settings, author, description); err != nil {
		return nil, err
	}

	e.logger.Info("design settings restored from backup", "backup_id", id)
	return e.store.Load(ctx), nil
}

// GetBackup returns one backup.
func (e *Engine) GetBackup(ctx context.Context, id string) (*model.Backup, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrBackupNotFound)
	}
	backup, err := kv.GetJSON[model.Backup](ctx, e.kv, design.BackupKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", id, err)
	}
	return backup, nil
}

// ListBackups returns live backups, newest first.
func (e *Engine) ListBackups(ctx context.Context) ([]model.Backup, error) {
	keys, err := e.kv.Keys(ctx, design.BackupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	backups := make([]model.Backup, 0, len(keys))
	for _, key := range keys {
		b, err := kv.GetJSON[model.Backup](ctx, e.kv, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		backups = append(backups, *b)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Status reports the stored version and the last migration run.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	st := &Status{TargetVersion: model.CurrentSchemaVersion}

	raw, err := e.store.LoadRaw(ctx)
	switch {
	case errors.Is(err, design.ErrNoDocument):
		st.NeedsMigration = true
	case err != nil:
		return nil, err
	default:
		st.Initialized = true
		st.CurrentVersion = detectVersion(raw)
		st.NeedsMigration = st.CurrentVersion != model.CurrentSchemaVersion
	}

	meta, err := kv.GetJSON[model.MigrationMetadata](ctx, e.kv, design.KeyMigrationMetadata)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("reading migration metadata: %w", err)
	}
	st.LastMigration = meta
	return st, nil
}
