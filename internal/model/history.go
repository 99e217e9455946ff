// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"
)

// HistoryEntry is an immutable snapshot taken on every save.
//
// Raw is set only when the saved bytes were not in the current shape, as when
// a pre-migration backup is restored. It then holds exactly what was stored
// and Settings is its view merged over defaults.
type HistoryEntry struct {
	ID          string           `json:"id"`
	Timestamp   time.Time        `json:"timestamp"`
	Author      string           `json:"author"`
	Description string           `json:"description,omitempty"`
	Settings    SettingsDocument `json:"settings"`
	Raw         json.RawMessage  `json:"raw,omitempty"`
}

// Backup is a raw copy of a document taken before it was migrated.
// Settings holds the stored bytes untouched, whatever their shape.
type Backup struct {
	ID        string          `json:"id"`
	Settings  json.RawMessage `json:"settings"`
	Timestamp time.Time       `json:"timestamp"`
	ExpiresAt time.Time       `json:"expiresAt,omitzero"`
}

// MigrationMetadata describes the most recent migration run.
type MigrationMetadata struct {
	FromVersion string    `json:"fromVersion"`
	ToVersion   string    `json:"toVersion"`
	Timestamp   time.Time `json:"timestamp"`
	BackupID    string    `json:"backupId,omitempty"`
	Author      string    `json:"author"`
}

// DifferenceType classifies a Difference.
type DifferenceType string

// Difference types.
const (
	DiffAdded    DifferenceType = "added"
	DiffRemoved  DifferenceType = "removed"
	DiffModified DifferenceType = "modified"
)

// Difference is one changed path between two documents. It is computed on
// demand and never stored.
type Difference struct {
	Path     string         `json:"path"`
	Type     DifferenceType `json:"type"`
	OldValue any            `json:"oldValue,omitempty"`
	NewValue any            `json:"newValue,omitempty"`
}
