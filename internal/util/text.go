// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// labelPolicy strips every tag; authors and descriptions are plain text.
var labelPolicy = bluemonday.StrictPolicy()

// SanitizeLabel strips markup from s, collapses whitespace and truncates the
// result to max runes (max <= 0 means no limit).
func SanitizeLabel(s string, max int) string {
	s = html.UnescapeString(labelPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")

	if max > 0 && utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}
