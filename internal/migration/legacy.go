// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/concretesite/designstore/internal/model"
)

// migrateLegacy maps a pre-versioning document onto the current schema.
// It starts from defaults and overwrites only what the legacy data specifies.
//
// Legacy documents kept per-section "backgroundImage"/"backgroundColor", one
// top-level "colors" palette and one top-level "fonts" pair.
func migrateLegacy(raw []byte) ([]byte, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("legacy document is not valid JSON")
	}
	legacy := gjson.ParseBytes(raw)
	doc := model.DefaultSettings()

	for _, id := range model.SectionIDs {
		section := doc.Sections[id]
		if bg, ok := legacyBackground(legacy.Get("sections." + string(id))); ok {
			section.Background = bg
		}
		doc.Sections[id] = section
	}

	if accent := legacy.Get("colors.primary"); accent.Exists() {
		eachSection(doc, func(s *model.SectionConfig) {
			s.Colors.Accent = model.ColorValue{Value: accent.String()}
		})
	}
	if text := legacy.Get("colors.text"); text.Exists() {
		eachSection(doc, func(s *model.SectionConfig) {
			s.Colors.Text = model.ColorValue{Value: text.String()}
		})
	}

	if heading := legacy.Get("fonts.heading"); heading.Exists() {
		family := heading.String()
		eachSection(doc, func(s *model.SectionConfig) {
			s.Fonts.Heading = systemFont(s.Fonts.Heading, family)
		})
		doc.GlobalFonts.Primary = systemFont(doc.GlobalFonts.Primary, family)
	}
	if body := legacy.Get("fonts.body"); body.Exists() {
		family := body.String()
		eachSection(doc, func(s *model.SectionConfig) {
			s.Fonts.Body = systemFont(s.Fonts.Body, family)
		})
		doc.GlobalFonts.Secondary = systemFont(doc.GlobalFonts.Secondary, family)
	}

	doc.Version = model.CurrentSchemaVersion
	return json.Marshal(doc)
}

// legacyBackground reads a legacy section. An image wins over a color.
func legacyBackground(section gjson.Result) (model.Background, bool) {
	if img := section.Get("backgroundImage"); img.Exists() && img.String() != "" {
		return model.Background{Type: model.BackgroundImage, Value: img.String()}, true
	}
	if color := section.Get("backgroundColor"); color.Exists() && color.String() != "" {
		return model.Background{Type: model.BackgroundColor, Value: color.String()}, true
	}
	return model.Background{}, false
}

func systemFont(base model.FontConfig, family string) model.FontConfig {
	base.Family = family
	base.Source = model.FontSystem
	return base
}

func eachSection(doc *model.SettingsDocument, fn func(*model.SectionConfig)) {
	for _, id := range model.SectionIDs {
		s := doc.Sections[id]
		fn(&s)
		doc.Sections[id] = s
	}
}
