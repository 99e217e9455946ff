// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/util"
)

// DefaultMaxHistory is the number of history entries kept when unconfigured.
const DefaultMaxHistory = 50

// History is the capped snapshot log. The index under KeyHistoryIndex lists
// entry ids newest first; each entry is stored under HistoryKey(id).
//
// An entry is written before the index references it, and evicted entries are
// deleted only after the shortened index is written. Readers still skip ids
// whose entry is gone, since entries can expire or be removed out of band.
type History struct {
	kv         kv.Store
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

// NewHistory creates a history log over store keeping at most maxEntries.
func NewHistory(store kv.Store, maxEntries int, logger *slog.Logger) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &History{
		kv:         store,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
	}
}

// MaxEntries returns the retention cap.
func (h *History) MaxEntries() int {
	return h.maxEntries
}

// Append snapshots settings as a new entry and evicts entries beyond the cap.
func (h *History) Append(ctx context.Context, settings *model.SettingsDocument, author, description string) (*model.HistoryEntry, error) {
	return h.AppendRaw(ctx, settings, nil, author, description)
}

// AppendRaw is Append for a document stored as raw bytes. raw is kept on the
// entry so a rollback can put back exactly what was stored.
func (h *History) AppendRaw(ctx context.Context, settings *model.SettingsDocument, raw []byte, author, description string) (*model.HistoryEntry, error) {
	if settings == nil {
		return nil, errors.New("appending history: nil settings")
	}

	now := h.now().UTC()
	entry := &model.HistoryEntry{
		ID:          util.NewID(now),
		Timestamp:   now,
		Author:      author,
		Description: description,
		Settings:    *settings.Clone(),
	}
	if len(raw) > 0 {
		entry.Raw = append(json.RawMessage(nil), raw...)
	}

	if err := kv.SetJSON(ctx, h.kv, HistoryKey(entry.ID), entry, 0); err != nil {
		return nil, fmt.Errorf("storing history entry: %w", err)
	}

	ids, err := h.readIndex(ctx)
	if errors.Is(err, errCorruptIndex) {
		h.logger.Warn("history index unreadable, rebuilding from entries",
			"category", model.EventCategoryHistory, "error", err)
		ids, err = h.scanEntryIDs(ctx)
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == entry.ID })
	}
	if err != nil {
		h.discard(ctx, entry.ID)
		return nil, err
	}

	ids = append([]string{entry.ID}, ids...)
	var evicted []string
	if len(ids) > h.maxEntries {
		evicted = append(evicted, ids[h.maxEntries:]...)
		ids = ids[:h.maxEntries]
	}

	if err := kv.SetJSON(ctx, h.kv, KeyHistoryIndex, ids, 0); err != nil {
		h.discard(ctx, entry.ID)
		return nil, fmt.Errorf("updating history index: %w", err)
	}

	for _, id := range evicted {
		if err := h.kv.Delete(ctx, HistoryKey(id)); err != nil {
			h.logger.Warn("failed to delete evicted history entry",
				"category", model.EventCategoryHistory, "id", id, "error", err)
		}
	}

	return entry, nil
}

// discard removes an entry the index never came to reference.
func (h *History) discard(ctx context.Context, id string) {
	if err := h.kv.Delete(ctx, HistoryKey(id)); err != nil {
		h.logger.Warn("failed to remove unindexed history entry",
			"category", model.EventCategoryHistory, "id", id, "error", err)
	}
}

// List returns up to limit entries, newest first. A non-positive limit lists
// every entry. Index ids whose entry is missing are skipped.
func (h *History) List(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	ids, err := h.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	entries := make([]model.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := kv.GetJSON[model.HistoryEntry](ctx, h.kv, HistoryKey(id))
		if errors.Is(err, kv.ErrNotFound) {
			h.logger.Debug("skipping dangling history id", "id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading history entry %s: %w", id, err)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Get returns one entry. Missing entries yield ErrEntryNotFound.
func (h *History) Get(ctx context.Context, id string) (*model.HistoryEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrEntryNotFound)
	}
	// Only ids minted by util.NewID name entries; this keeps lookups off the
	// index key and anything else under the history prefix.
	if _, ok := util.IDTime(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	entry, err := kv.GetJSON[model.HistoryEntry](ctx, h.kv, HistoryKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading history entry %s: %w", id, err)
	}
	return entry, nil
}

// Len returns the number of ids in the index.
func (h *History) Len(ctx context.Context) (int, error) {
	ids, err := h.readIndex(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Compact drops index ids whose entry is missing, removes duplicates and
// re-applies the cap. An unreadable index is rebuilt from the stored entries.
// It returns the number of ids removed from the index.
func (h *History) Compact(ctx context.Context) (int, error) {
	ids, err := h.readIndex(ctx)
	rebuilt := errors.Is(err, errCorruptIndex)
	if rebuilt {
		h.logger.Warn("history index unreadable, rebuilding from entries",
			"category", model.EventCategoryHistory, "error", err)
		if ids, err = h.scanEntryIDs(ctx); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(ids))
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if _, err := h.kv.Get(ctx, HistoryKey(id)); err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("checking history entry %s: %w", id, err)
		}
		kept = append(kept, id)
	}

	var evicted []string
	if len(kept) > h.maxEntries {
		evicted = kept[h.maxEntries:]
		kept = kept[:h.maxEntries]
	}

	removed := len(ids) - len(kept)
	if removed == 0 && !rebuilt {
		return 0, nil
	}

	if err := kv.SetJSON(ctx, h.kv, KeyHistoryIndex, kept, 0); err != nil {
		return 0, fmt.Errorf("updating history index: %w", err)
	}
	for _, id := range evicted {
		if err := h.kv.Delete(ctx, HistoryKey(id)); err != nil {
			h.logger.Warn("failed to delete evicted history entry",
				"category", model.EventCategoryHistory, "id", id, "error", err)
		}
	}

	h.logger.Info("history index compacted", "removed", removed, "kept", len(kept))
	return removed, nil
}

var errCorruptIndex = errors.New("history index is corrupt")

// readIndex returns the index ids, or none when the index does not exist yet.
func (h *History) readIndex(ctx context.Context) ([]string, error) {
	ids, err := kv.GetJSON[[]string](ctx, h.kv, KeyHistoryIndex)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if isDecodeError(err) {
			return nil, fmt.Errorf("%w: %w", errCorruptIndex, err)
		}
		return nil, fmt.Errorf("reading history index: %w", err)
	}
	return *ids, nil
}

// scanEntryIDs lists stored entry ids, newest first.
func (h *History) scanEntryIDs(ctx context.Context) ([]string, error) {
	keys, err := h.kv.Keys(ctx, HistoryKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing history entries: %w", err)
	}

	type stamped struct {
		id string
		at time.Time
	}
	var found []stamped
	for _, k := range keys {
		if k == KeyHistoryIndex {
			continue
		}
		id := k[len(HistoryKeyPrefix):]
		at, ok := util.IDTime(id)
		if !ok {
			continue
		}
		found = append(found, stamped{id: id, at: at})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].at.Equal(found[j].at) {
			return found[i].id > found[j].id
		}
		return found[i].at.After(found[j].at)
	})

	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}
