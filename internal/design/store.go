// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package design owns the current design settings document and its history.
//
// Writes are last-write-wins: two admins saving at once both succeed and the
// later save becomes current. The earlier document survives only as a
// history entry.
package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/concretesite/designstore/internal/diff"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/util"
)

const (
	// DescriptionImport is recorded on history entries created by Import.
	DescriptionImport = "Imported from JSON"

	// CurrentRef addresses the live document in Compare.
	CurrentRef = "current"

	// DefaultAuthor is recorded when a caller supplies no author.
	DefaultAuthor = "admin"

	maxAuthorLen      = 100
	maxDescriptionLen = 500
)

// Options configures a Store.
type Options struct {
	// MaxHistory caps the history log (0 = DefaultMaxHistory).
	MaxHistory int

	Logger *slog.Logger
}

// Store reads and writes the current settings document and records every
// save in the history log. Construct one per process and share it.
type Store struct {
	kv      kv.Store
	history *History
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store over the given key-value backend.
func NewStore(store kv.Store, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:      store,
		history: NewHistory(store, opts.MaxHistory, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// History returns the store's history log.
func (s *Store) History() *History {
	return s.history
}

// KV returns the backend the store writes to.
func (s *Store) KV() kv.Store {
	return s.kv
}

// Load returns the current document merged over defaults. It never fails:
// a missing, unreadable or malformed document yields the defaults.
func (s *Store) Load(ctx context.Context) *model.SettingsDocument {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoDocument) {
			s.logger.Warn("failed to read design settings, using defaults",
				"category", model.EventCategorySettings, "error", err)
		}
		return model.DefaultSettings()
	}

	doc, err := model.DecodeSettings(data)
	if err != nil {
		s.logger.Warn("stored design settings are malformed, using defaults",
			"category", model.EventCategorySettings, "error", err)
		return model.DefaultSettings()
	}
	return doc
}

// LoadRaw returns the stored bytes of the current document untouched.
func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	data, err := s.kv.Get(ctx, KeyCurrent)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading design settings: %w", err)
	}
	return data, nil
}

// Save stamps doc.LastUpdated, stores doc as current and records a history
// entry. A failed history append is logged and does not fail the save.
//
// doc is always written in the current shape, so its version is set to
// model.CurrentSchemaVersion whatever the caller's document claimed.
func (s *Store) Save(ctx context.Context, doc *model.SettingsDocument, author, description string) error {
	if doc == nil {
		return errors.New("saving design settings: nil document")
	}

	doc.Version = model.CurrentSchemaVersion
	doc.LastUpdated = s.now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding design settings: %w", err)
	}
	return s.write(ctx, data, doc, nil, author, description)
}

// SaveRaw stores a JSON object as current without reshaping it, stamping only
// its lastUpdated field. It is used to put pre-migration backups back in
// place. The history entry keeps the stored bytes so a rollback restores them
// unchanged; its Settings view carries the raw version, empty when absent.
func (s *Store) SaveRaw(ctx context.Context, raw []byte, author, description string) error {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return errors.New("saving design settings: raw document is not a JSON object")
	}

	stamped, err := sjson.SetBytes(raw, "lastUpdated", s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("stamping design settings: %w", err)
	}

	snapshot, err := model.DecodeSettings(stamped)
	if err != nil {
		s.logger.Warn("raw design settings do not decode, history view will hold defaults",
			"category", model.EventCategorySettings, "error", err)
		snapshot = model.DefaultSettings()
	}
	snapshot.Version = gjson.GetBytes(stamped, "version").String()
	return s.write(ctx, stamped, snapshot, stamped, author, description)
}

func (s *Store) write(ctx context.Context, data []byte, snapshot *model.SettingsDocument, raw []byte, author, description string) error {
	author = normalizeAuthor(author)
	description = util.SanitizeLabel(description, maxDescriptionLen)

	if err := s.kv.Set(ctx, KeyCurrent, data, 0); err != nil {
		return fmt.Errorf("saving design settings: %w", err)
	}

	entry, err := s.history.AppendRaw(ctx, snapshot, raw, author, description)
	if err != nil {
		s.logger.Warn("failed to record design settings history",
			"category", model.EventCategoryHistory, "author", author, "error", err)
		return nil
	}

	s.logger.Info("design settings saved", "author", author, "history_id", entry.ID)
	return nil
}

// Export returns the current document as indented JSON.
func (s *Store) Export(ctx context.Context) (string, error) {
	data, err := json.MarshalIndent(s.Load(ctx), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding design settings: %w", err)
	}
	return string(data), nil
}

// Import parses data, checks that it carries version, sections and
// productCards, and saves it merged over defaults. Rejected input leaves the
// current document untouched.
func (s *Store) Import(ctx context.Context, data, author string) (*model.SettingsDocument, error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidImport)
	}

	root := gjson.Parse(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidImport)
	}

	var missing []string
	for _, field := range []string{"version", "sections", "productCards"} {
		if !root.Get(field).Exists() {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrInvalidImport, strings.Join(missing, ", "))
	}

	doc, err := model.DecodeSettings([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	if err := s.Save(ctx, doc, author, DescriptionImport); err != nil {
		return nil, err
	}
	return doc, nil
}

// Rollback makes the settings of history entry id current again. The log is
// only appended to: the rollback is itself recorded as a new entry.
func (s *Store) Rollback(ctx context.Context, id, author string) (*model.SettingsDocument, error) {
	entry, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	description := "Rolled back to version from " + entry.Timestamp.Format(time.RFC3339)
	if len(entry.Raw) > 0 {
		if err := s.SaveRaw(ctx, entry.Raw, author, description); err != nil {
			return nil, err
		}
		return s.Load(ctx), nil
	}

	doc := entry.Settings.Clone()
	if err := s.Save(ctx, doc, author, description); err != nil {
		return nil, err
	}
	return doc, nil
}

var pathPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// SetPath replaces the value at a dotted path of the current document, e.g.
// "sections.hero.colors.accent.value", and saves the result. value is JSON.
func (s *Store) SetPath(ctx context.Context, path string, value json.RawMessage, author string) (*model.SettingsDocument, error) {
	if !pathPattern.MatchString(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if path == "version" || path == "lastUpdated" {
		return nil, fmt.Errorf("%w: %q is managed by the store", ErrInvalidPath, path)
	}
	if !json.Valid(value) {
		return nil, fmt.Errorf("%w: value is not valid JSON", ErrInvalidPath)
	}

	current, err := json.Marshal(s.Load(ctx))
	if err != nil {
		return nil, fmt.Errorf("encoding design settings: %w", err)
	}

	patched, err := sjson.SetRawBytes(current, path, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	doc, err := model.DecodeSettings(patched)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	// Fields the document does not define are dropped by decoding.
	decoded, _ := json.Marshal(doc)
	if !gjson.GetBytes(decoded, path).Exists() {
		return nil, fmt.Errorf("%w: %q is not a settings field", ErrInvalidPath, path)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if err := s.Save(ctx, doc, author, "Updated "+path); err != nil {
		return nil, err
	}
	return doc, nil
}

// Comparison is the difference between two snapshots.
type Comparison struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Differences []model.Difference `json:"differences"`
	Summary     diff.Summary       `json:"summary"`
}

// Compare diffs two history entries. Either id may be CurrentRef to use the
// live document. Neither snapshot is modified.
func (s *Store) Compare(ctx context.Context, fromID, toID string) (*Comparison, error) {
	from, err := s.resolve(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.resolve(ctx, toID)
	if err != nil {
		return nil, err
	}

	diffs := diff.Compare(from, to)
	if diffs == nil {
		diffs = []model.Difference{}
	}
	return &Comparison{
		From:        fromID,
		To:          toID,
		Differences: diffs,
		Summary:     diff.Summarize(diffs),
	}, nil
}

func (s *Store) resolve(ctx context.Context, id string) (*model.SettingsDocument, error) {
	if id == CurrentRef {
		return s.Load(ctx), nil
	}
	entry, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entry.Settings, nil
}

func normalizeAuthor(author string) string {
	author = util.SanitizeLabel(author, maxAuthorLen)
	if author == "" {
		return DefaultAuthor
	}
	return author
}
