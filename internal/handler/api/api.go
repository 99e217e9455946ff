// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API for design settings.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/migration"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/version"
)

// maxBodyBytes bounds request bodies; a full settings document is a few KB.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	store   *design.Store
	engine  *migration.Engine
	kv      kv.Store
	backend string
	info    version.Info
	logger  *slog.Logger
}

// Config holds the dependencies of a Handler.
type Config struct {
	Store   *design.Store
	Engine  *migration.Engine
	Backend string // KV backend in use, reported by Status
	Version version.Info
	Logger  *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		store:   cfg.Store,
		engine:  cfg.Engine,
		kv:      cfg.Store.KV(),
		backend: cfg.Backend,
		info:    cfg.Version,
		logger:  cfg.Logger,
	}
}

// Routes registers the design endpoints on r. mutate wraps every route that
// changes stored state (typically rate limiting).
func (h *Handler) Routes(r chi.Router, mutate func(http.Handler) http.Handler) {
	if mutate == nil {
		mutate = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/settings", h.GetSettings)
	r.Get("/export", h.Export)
	r.Get("/history", h.ListHistory)
	r.Get("/history/{id}", h.GetHistory)
	r.Get("/compare", h.Compare)
	r.Get("/migration", h.MigrationStatus)
	r.Get("/backups", h.ListBackups)
	r.Get("/events", h.ListEvents)

	r.Group(func(r chi.Router) {
		r.Use(mutate)
		r.Put("/settings", h.PutSettings)
		r.Patch("/settings", h.PatchSettings)
		r.Post("/import", h.Import)
		r.Post("/history/{id}/rollback", h.Rollback)
		r.Post("/migration", h.Migrate)
		r.Post("/backups/{id}/restore", h.RestoreBackup)
	})
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains list metadata.
type Meta struct {
	Total int `json:"total"`
	Limit int `json:"limit,omitempty"`
	Cap   int `json:"cap,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response.
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", message, nil)
}

// writeStoreError maps domain errors onto HTTP responses. Unknown errors are
// logged and reported as 500 without their text.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, design.ErrEntryNotFound):
		WriteNotFound(w, "History entry not found")
	case errors.Is(err, migration.ErrBackupNotFound):
		WriteNotFound(w, "Backup not found")
	case errors.Is(err, design.ErrInvalidPath):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, design.ErrInvalidImport), errors.Is(err, model.ErrInvalidSettings):
		WriteValidationError(w, err.Error())
	default:
		h.logger.Error("design API request failed", "op", op, "path", r.URL.Path, "error", err)
		WriteInternalError(w, "Failed to "+op)
	}
}

// parseLimit reads ?limit=, returning def when absent and -1 when malformed.
func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status        string       `json:"status"`
	APIVersion    string       `json:"api_version"`
	Build         version.Info `json:"build"`
	SchemaVersion string       `json:"schema_version"`
	Backend       string       `json:"backend"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:        "ok",
		APIVersion:    "v1",
		Build:         h.info,
		SchemaVersion: model.CurrentSchemaVersion,
		Backend:       h.backend,
	}, nil)
}
