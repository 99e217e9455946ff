// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package design

import (
	"encoding/json"
	"errors"
)

var (
	// ErrEntryNotFound is returned when a history entry id does not exist.
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrInvalidImport is returned when imported JSON is unusable.
	ErrInvalidImport = errors.New("invalid import")

	// ErrNoDocument is returned by LoadRaw when nothing has been saved yet.
	ErrNoDocument = errors.New("no design settings stored")

	// ErrInvalidPath is returned by SetPath for malformed or unknown paths.
	ErrInvalidPath = errors.New("invalid settings path")
)

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
