// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/concretesite/designstore/internal/util"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid design settings")

// rawDocument mirrors SettingsDocument with map values left undecoded so each
// entry can be decoded over its own default.
type rawDocument struct {
	Version        *string                       `json:"version"`
	LastUpdated    *time.Time                    `json:"lastUpdated"`
	Sections       map[SectionID]json.RawMessage `json:"sections"`
	ProductCards   json.RawMessage               `json:"productCards"`
	ProductDetails map[string]json.RawMessage    `json:"productDetails"`
	GlobalFonts    json.RawMessage               `json:"globalFonts"`
}

// DecodeSettings decodes data over the default document. Every group and
// section the input omits is backfilled from defaults, and so is every field
// a present group omits. A document without a version gets the current one.
func DecodeSettings(data []byte) (*SettingsDocument, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	doc := DefaultSettings()
	if raw.Version != nil && *raw.Version != "" {
		doc.Version = *raw.Version
	}
	if raw.LastUpdated != nil {
		doc.LastUpdated = raw.LastUpdated.UTC()
	}

	for id, msg := range raw.Sections {
		section := DefaultSection(id)
		if err := decodeOver(msg, &section); err != nil {
			return nil, fmt.Errorf("decoding section %q: %w", id, err)
		}
		doc.Sections[id] = section
	}

	if err := decodeOver(raw.ProductCards, &doc.ProductCards); err != nil {
		return nil, fmt.Errorf("decoding productCards: %w", err)
	}

	for id, msg := range raw.ProductDetails {
		detail := DefaultProductDetail()
		if err := decodeOver(msg, &detail); err != nil {
			return nil, fmt.Errorf("decoding productDetails %q: %w", id, err)
		}
		doc.ProductDetails[id] = detail
	}

	if err := decodeOver(raw.GlobalFonts, &doc.GlobalFonts); err != nil {
		return nil, fmt.Errorf("decoding globalFonts: %w", err)
	}

	return doc, nil
}

// decodeOver decodes msg into dst, leaving fields msg omits untouched.
func decodeOver(msg json.RawMessage, dst any) error {
	if len(msg) == 0 {
		return nil
	}
	return json.Unmarshal(msg, dst)
}

// Validate checks enum fields, CSS colors and that every fixed section is
// present.
// All problems are reported together.
func (d *SettingsDocument) Validate() error {
	var errs []error
	if d.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}

	for _, id := range SectionIDs {
		if _, ok := d.Sections[id]; !ok {
			errs = append(errs, fmt.Errorf("section %q is missing", id))
		}
	}

	for id, s := range d.Sections {
		prefix := "sections." + string(id)
		errs = append(errs, validateBackground(prefix+".background", s.Background)...)
		errs = append(errs, validateFont(prefix+".fonts.heading", s.Fonts.Heading)...)
		errs = append(errs, validateFont(prefix+".fonts.body", s.Fonts.Body)...)
		errs = append(errs, validateColors(prefix+".colors", s.Colors)...)
	}

	card := d.ProductCards
	errs = append(errs, validateBackground("productCards.background", card.Background)...)
	errs = append(errs, validateFont("productCards.fonts.title", card.Fonts.Title)...)
	errs = append(errs, validateFont("productCards.fonts.body", card.Fonts.Body)...)
	errs = append(errs, validateColors("productCards.colors", card.Colors)...)
	if card.Shadow.Color != "" && !IsValidColor(card.Shadow.Color) {
		errs = append(errs, fmt.Errorf("productCards.shadow.color: %q is not a CSS color", card.Shadow.Color))
	}
	switch card.HoverEffect {
	case HoverNone, HoverLift, HoverGlow, HoverScale:
	default:
		errs = append(errs, fmt.Errorf("productCards.hoverEffect: unknown value %q", card.HoverEffect))
	}

	for id, p := range d.ProductDetails {
		prefix := "productDetails." + id
		if !util.IsValidProductID(id) {
			errs = append(errs, fmt.Errorf("%s: product id must be lowercase letters, digits and single hyphens", prefix))
		}
		errs = append(errs, validateBackground(prefix+".hero", p.Hero)...)
		errs = append(errs, validateFont(prefix+".fonts.heading", p.Fonts.Heading)...)
		errs = append(errs, validateFont(prefix+".fonts.body", p.Fonts.Body)...)
		errs = append(errs, validateColors(prefix+".colors", p.Colors)...)
	}

	errs = append(errs, validateFont("globalFonts.primary", d.GlobalFonts.Primary)...)
	errs = append(errs, validateFont("globalFonts.secondary", d.GlobalFonts.Secondary)...)
	errs = append(errs, validateFont("globalFonts.monospace", d.GlobalFonts.Monospace)...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

func validateBackground(path string, b Background) []error {
	var errs []error
	switch b.Type {
	case BackgroundColor, BackgroundGradient, BackgroundImage, BackgroundVideo:
	default:
		errs = append(errs, fmt.Errorf("%s.type: unknown value %q", path, b.Type))
	}
	if b.Type == BackgroundColor && !IsValidColor(b.Value) {
		errs = append(errs, fmt.Errorf("%s.value: %q is not a CSS color", path, b.Value))
	}
	if b.Overlay != nil {
		errs = append(errs, validateColor(path+".overlay", *b.Overlay)...)
	}
	if b.Opacity != nil && (*b.Opacity < 0 || *b.Opacity > 1) {
		errs = append(errs, fmt.Errorf("%s.opacity: %v is outside [0, 1]", path, *b.Opacity))
	}
	return errs
}

func validateFont(path string, f FontConfig) []error {
	var errs []error
	switch f.Source {
	case FontSystem, FontGoogle, FontCustom:
	default:
		errs = append(errs, fmt.Errorf("%s.source: unknown value %q", path, f.Source))
	}
	if f.Family == "" {
		errs = append(errs, fmt.Errorf("%s.family is required", path))
	}
	return errs
}
