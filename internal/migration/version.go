// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"

	"github.com/concretesite/designstore/internal/model"
)

// VersionLegacy labels documents written before schema versioning, and any
// document whose version is older than the first versioned schema.
const VersionLegacy = "legacy"

// firstVersioned is the oldest schema that carries its own version string.
const firstVersioned = "v2.0.0"

// detectVersion reads the version field of a raw document. Semantic versions
// are returned in canonical "MAJOR.MINOR.PATCH" form, so "2.0" and "v2.0.0"
// both read as "2.0.0". Anything else is returned as stored.
func detectVersion(raw []byte) string {
	v := strings.TrimSpace(gjson.GetBytes(raw, "version").String())
	if v == "" {
		return VersionLegacy
	}
	c := canonical(v)
	if c == "" {
		return v
	}
	if semver.Compare(c, firstVersioned) < 0 {
		return VersionLegacy
	}
	return strings.TrimPrefix(c, "v")
}

// isNewer reports whether v is a semantic version newer than this build writes.
func isNewer(v string) bool {
	c := canonical(v)
	if c == "" {
		return false
	}
	return semver.Compare(c, canonical(model.CurrentSchemaVersion)) > 0
}

// canonical returns v as "vMAJOR.MINOR.PATCH[-pre]" with the leading "v"
// optional on input, or "" when v is not a semantic version.
func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}
