// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/concretesite/designstore/internal/middleware"
	"github.com/concretesite/designstore/internal/model"
)

// DescriptionUpdate labels history entries written by PUT /settings.
const DescriptionUpdate = "Updated design settings"

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.store.Load(r.Context()), nil)
}

// PutSettings handles PUT /settings. The body is merged over defaults and
// validated before it replaces the current document.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	doc, err := model.DecodeSettings(body)
	if err != nil {
		WriteBadRequest(w, "Invalid settings document: "+err.Error())
		return
	}
	if err := doc.Validate(); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	if err := h.store.Save(r.Context(), doc, middleware.GetAuthor(r), DescriptionUpdate); err != nil {
		h.writeStoreError(w, r, "save settings", err)
		return
	}
	WriteSuccess(w, doc, nil)
}

// PatchRequest is the body of PATCH /settings.
type PatchRequest struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// PatchSettings handles PATCH /settings.
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req PatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}
	if req.Path == "" || len(req.Value) == 0 {
		WriteBadRequest(w, "Both path and value are required")
		return
	}

	doc, err := h.store.SetPath(r.Context(), req.Path, req.Value, middleware.GetAuthor(r))
	if err != nil {
		h.writeStoreError(w, r, "update settings", err)
		return
	}
	WriteSuccess(w, doc, nil)
}

// Export handles GET /export as a JSON attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Export(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "export settings", err)
		return
	}

	filename := "design-settings-" + time.Now().UTC().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, data)
}

// Import handles POST /import. The raw body is the exported document.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	doc, err := h.store.Import(r.Context(), string(body), middleware.GetAuthor(r))
	if err != nil {
		h.writeStoreError(w, r, "import settings", err)
		return
	}
	WriteSuccess(w, doc, nil)
}

// readBody reads a bounded request body, writing the error response itself.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return nil, false
		}
		WriteBadRequest(w, "Failed to read request body")
		return nil, false
	}
	if len(body) == 0 {
		WriteBadRequest(w, "Request body is empty")
		return nil, false
	}
	return body, true
}
