// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package design

// Persisted key layout.
const (
	KeyCurrent           = "design:settings:current"
	KeyHistoryIndex      = "design:history:entries"
	KeyMigrationMetadata = "design:migration:metadata"

	HistoryKeyPrefix = "design:history:"
	BackupKeyPrefix  = "design:backup:"
)

// HistoryKey returns the key of one history entry.
func HistoryKey(id string) string {
	return HistoryKeyPrefix + id
}

// BackupKey returns the key of one migration backup.
func BackupKey(id string) string {
	return BackupKeyPrefix + id
}
