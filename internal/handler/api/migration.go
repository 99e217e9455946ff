// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/concretesite/designstore/internal/logging"
	"github.com/concretesite/designstore/internal/middleware"
)

const defaultEventLimit = 50

// MigrationStatus handles GET /migration.
func (h *Handler) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Status(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "read migration status", err)
		return
	}
	WriteSuccess(w, st, nil)
}

// Migrate handles POST /migration. The result is returned either way; a
// failed migration answers 500.
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	res := h.engine.Migrate(r.Context(), middleware.GetAuthor(r))
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, Response{Data: res})
}

// ListBackups handles GET /backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.engine.ListBackups(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "list backups", err)
		return
	}
	WriteSuccess(w, backups, &Meta{Total: len(backups)})
}

// RestoreBackup handles POST /backups/{id}/restore.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.RestoreFromBackup(r.Context(), chi.URLParam(r, "id"), middleware.GetAuthor(r))
	if err != nil {
		h.writeStoreError(w, r, "restore backup", err)
		return
	}
	WriteSuccess(w, doc, nil)
}

// ListEvents handles GET /events?limit=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultEventLimit)
	if limit < 0 {
		WriteBadRequest(w, "limit must be a non-negative integer")
		return
	}

	events, err := logging.ListEvents(r.Context(), h.kv, limit)
	if err != nil {
		h.writeStoreError(w, r, "list events", err)
		return
	}
	WriteSuccess(w, events, &Meta{Total: len(events), Limit: limit})
}
