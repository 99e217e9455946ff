// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/middleware"
)

// defaultHistoryLimit is used when ?limit= is absent.
const defaultHistoryLimit = 20

// ListHistory handles GET /history?limit=. limit=0 returns every entry.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultHistoryLimit)
	if limit < 0 {
		WriteBadRequest(w, "limit must be a non-negative integer")
		return
	}

	entries, err := h.store.History().List(r.Context(), limit)
	if err != nil {
		h.writeStoreError(w, r, "list history", err)
		return
	}
	WriteSuccess(w, entries, &Meta{
		Total: len(entries),
		Limit: limit,
		Cap:   h.store.History().MaxEntries(),
	})
}

// GetHistory handles GET /history/{id}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.History().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, "get history entry", err)
		return
	}
	WriteSuccess(w, entry, nil)
}

// Rollback handles POST /history/{id}/rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Rollback(r.Context(), chi.URLParam(r, "id"), middleware.GetAuthor(r))
	if err != nil {
		h.writeStoreError(w, r, "roll back settings", err)
		return
	}
	WriteSuccess(w, doc, nil)
}

// Compare handles GET /compare?a=&b=. Either id may be "current"; b
// defaults to it.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("a")
	to := r.URL.Query().Get("b")
	if from == "" {
		WriteBadRequest(w, "Query parameter a is required")
		return
	}
	if to == "" {
		to = design.CurrentRef
	}

	cmp, err := h.store.Compare(r.Context(), from, to)
	if err != nil {
		h.writeStoreError(w, r, "compare settings", err)
		return
	}
	WriteSuccess(w, cmp, nil)
}
