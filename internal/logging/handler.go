// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that integrates with the event log.
// It forwards logs at WARN level and above to a capped list in the KV store so
// admins can see failures that were recovered locally.
package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/model"
)

// EventsKey holds the event list, newest first.
const EventsKey = "design:events"

// DefaultMaxEvents caps the event list.
const DefaultMaxEvents = 100

const writeTimeout = 2 * time.Second

// sink is shared by a handler and everything derived from it.
type sink struct {
	store     kv.Store
	maxEvents int

	// mu serializes read-modify-write of the list.
	mu sync.Mutex
}

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the event list.
type EventLogHandler struct {
	inner slog.Handler
	sink  *sink
	level slog.Level // Minimum level to forward (default: WARN)
	attrs []slog.Attr
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
func NewEventLogHandler(inner slog.Handler, store kv.Store) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, store, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, store kv.Store, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner: inner,
		sink:  &sink{store: store, maxEvents: DefaultMaxEvents},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeEvent(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner: h.inner.WithAttrs(attrs),
		sink:  h.sink,
		level: h.level,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner: h.inner.WithGroup(name),
		sink:  h.sink,
		level: h.level,
		attrs: h.attrs,
	}
}

// writeEvent prepends the record to the event list. The KV store must not log
// through this handler.
func (h *EventLogHandler) writeEvent(r slog.Record) {
	event := model.Event{
		Level:     slogLevelToEventLevel(r.Level),
		Category:  extractCategory(h.attrs, r),
		Message:   r.Message,
		Metadata:  extractMetadata(h.attrs, r),
		CreatedAt: r.Time.UTC(),
	}

	s := h.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	// The request context may already be cancelled; events outlive it.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	events, err := readEvents(ctx, s.store)
	if err != nil {
		events = nil
	}
	events = append([]model.Event{event}, events...)
	if len(events) > s.maxEvents {
		events = events[:s.maxEvents]
	}
	_ = kv.SetJSON(ctx, s.store, EventsKey, events, 0)
}

// ListEvents returns up to limit events, newest first. limit <= 0 returns all.
func ListEvents(ctx context.Context, store kv.Store, limit int) ([]model.Event, error) {
	events, err := readEvents(ctx, store)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// ClearEvents removes every stored event.
func ClearEvents(ctx context.Context, store kv.Store) error {
	err := store.Delete(ctx, EventsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	return err
}

func readEvents(ctx context.Context, store kv.Store) ([]model.Event, error) {
	events, err := kv.GetJSON[[]model.Event](ctx, store, EventsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	return *events, nil
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory looks for a "category" attribute or infers one from the message.
func extractCategory(attrs []slog.Attr, r slog.Record) string {
	var category string
	for _, a := range attrs {
		if a.Key == "category" {
			category = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})
	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "history"):
		return model.EventCategoryHistory
	case strings.Contains(msg, "migrat") || strings.Contains(msg, "backup"):
		return model.EventCategoryMigration
	case strings.Contains(msg, "redis") || strings.Contains(msg, "sqlite") ||
		strings.Contains(msg, "kv ") || strings.Contains(msg, "storage"):
		return model.EventCategoryStorage
	case strings.Contains(msg, "setting"):
		return model.EventCategorySettings
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata flattens attributes into strings. Group attributes use
// dotted keys.
func extractMetadata(attrs []slog.Attr, r slog.Record) map[string]string {
	out := make(map[string]string)
	var add func(prefix string, a slog.Attr)
	add = func(prefix string, a slog.Attr) {
		if a.Key == "category" && prefix == "" {
			return
		}
		key := a.Key
		if prefix != "" {
			key = prefix + "." + a.Key
		}
		v := a.Value.Resolve()
		if v.Kind() == slog.KindGroup {
			for _, ga := range v.Group() {
				add(key, ga)
			}
			return
		}
		out[key] = v.String()
	}

	for _, a := range attrs {
		add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add("", a)
		return true
	})

	if len(out) == 0 {
		return nil
	}
	return out
}
