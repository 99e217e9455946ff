// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hexColorRegex      = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	functionColorRegex = regexp.MustCompile(`^(?i:rgba?|hsla?)\([0-9a-zA-Z.,%/+\-\s]+\)$`)
	namedColorRegex    = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// IsValidColor reports whether s is a CSS color: a hex color, an rgb(a) or
// hsl(a) function, or a keyword such as "transparent".
func IsValidColor(s string) bool {
	s = strings.TrimSpace(s)
	return hexColorRegex.MatchString(s) ||
		functionColorRegex.MatchString(s) ||
		namedColorRegex.MatchString(s)
}

// validateColor accepts an empty value, which leaves the color unset.
func validateColor(path string, c ColorValue) []error {
	var errs []error
	if c.Value != "" && !IsValidColor(c.Value) {
		errs = append(errs, fmt.Errorf("%s.value: %q is not a CSS color", path, c.Value))
	}
	if c.Opacity != nil && (*c.Opacity < 0 || *c.Opacity > 1) {
		errs = append(errs, fmt.Errorf("%s.opacity: %v is outside [0, 1]", path, *c.Opacity))
	}
	return errs
}

func validateColors(path string, c SectionColors) []error {
	var errs []error
	errs = append(errs, validateColor(path+".heading", c.Heading)...)
	errs = append(errs, validateColor(path+".text", c.Text)...)
	errs = append(errs, validateColor(path+".accent", c.Accent)...)
	errs = append(errs, validateColor(path+".muted", c.Muted)...)
	return errs
}
