// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared by the design packages:
// product id normalization, label sanitizing and record ids.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonIDChars      = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// ProductID turns a product name into the key used under productDetails.
// Accents are folded, so "Béton Prêt" becomes "beton-pret". Names written
// only in non-Latin scripts yield "".
func ProductID(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	id, _, _ := transform.String(t, name)

	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, " ", "-")
	id = strings.ReplaceAll(id, "_", "-")
	id = nonIDChars.ReplaceAllString(id, "")
	id = multipleHyphens.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

// IsValidProductID reports whether s is already in ProductID form.
func IsValidProductID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}
