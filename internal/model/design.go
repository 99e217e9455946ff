// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the design settings document and the records kept
// around it: history entries, migration backups and migration metadata.
package model

import (
	"encoding/json"
	"time"
)

// CurrentSchemaVersion is the schema version written by this build.
const CurrentSchemaVersion = "2.0.0"

// SectionID identifies a page section.
type SectionID string

// Page sections.
const (
	SectionHero     SectionID = "hero"
	SectionAbout    SectionID = "about"
	SectionProducts SectionID = "products"
	SectionContact  SectionID = "contact"
)

// SectionIDs lists the fixed sections every document must carry, in page order.
var SectionIDs = []SectionID{SectionHero, SectionAbout, SectionProducts, SectionContact}

// BackgroundType is the kind of a section background.
type BackgroundType string

// Background types.
const (
	BackgroundColor    BackgroundType = "color"
	BackgroundGradient BackgroundType = "gradient"
	BackgroundImage    BackgroundType = "image"
	BackgroundVideo    BackgroundType = "video"
)

// FontSource tells the renderer where a font family comes from.
type FontSource string

// Font sources.
const (
	FontSystem FontSource = "system"
	FontGoogle FontSource = "google"
	FontCustom FontSource = "custom"
)

// HoverEffect is the product card hover animation.
type HoverEffect string

// Hover effects.
const (
	HoverNone  HoverEffect = "none"
	HoverLift  HoverEffect = "lift"
	HoverGlow  HoverEffect = "glow"
	HoverScale HoverEffect = "scale"
)

// Background describes what is painted behind a section.
// Value is a CSS color, a CSS gradient or a media URL depending on Type.
type Background struct {
	Type    BackgroundType `json:"type"`
	Value   string         `json:"value"`
	Overlay *ColorValue    `json:"overlay,omitempty"`
	Opacity *float64       `json:"opacity,omitempty"`
}

// FontConfig describes one font role.
type FontConfig struct {
	Family        string     `json:"family"`
	Source        FontSource `json:"source"`
	Weight        int        `json:"weight"`
	Size          string     `json:"size"`
	LineHeight    string     `json:"lineHeight"`
	LetterSpacing string     `json:"letterSpacing,omitempty"`
}

// ColorValue is a CSS color with optional opacity.
type ColorValue struct {
	Value   string   `json:"value"`
	Opacity *float64 `json:"opacity,omitempty"`
}

// SectionColors holds the text colors of a section.
type SectionColors struct {
	Heading ColorValue `json:"heading"`
	Text    ColorValue `json:"text"`
	Accent  ColorValue `json:"accent"`
	Muted   ColorValue `json:"muted"`
}

// SectionFonts holds the fonts of a section.
type SectionFonts struct {
	Heading FontConfig `json:"heading"`
	Body    FontConfig `json:"body"`
}

// Spacing holds CSS lengths for section padding and inner gaps.
type Spacing struct {
	PaddingTop    string `json:"paddingTop"`
	PaddingBottom string `json:"paddingBottom"`
	Gap           string `json:"gap"`
}

// SectionConfig is the design of one page section.
type SectionConfig struct {
	Background Background    `json:"background"`
	Fonts      SectionFonts  `json:"fonts"`
	Colors     SectionColors `json:"colors"`
	Spacing    Spacing       `json:"spacing"`
}

// ShadowConfig is a box shadow. Offsets are in pixels.
type ShadowConfig struct {
	Enabled bool   `json:"enabled"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Blur    int    `json:"blur"`
	Spread  int    `json:"spread"`
	Color   string `json:"color"`
}

// CardFonts holds the fonts of a product card.
type CardFonts struct {
	Title FontConfig `json:"title"`
	Body  FontConfig `json:"body"`
}

// CardConfig is the design shared by all product cards.
type CardConfig struct {
	Background   Background    `json:"background"`
	Fonts        CardFonts     `json:"fonts"`
	Colors       SectionColors `json:"colors"`
	BorderRadius string        `json:"borderRadius"`
	Padding      string        `json:"padding"`
	Shadow       ShadowConfig  `json:"shadow"`
	HoverEffect  HoverEffect   `json:"hoverEffect"`
}

// ProductDetailConfig is the design of one product's detail page.
type ProductDetailConfig struct {
	Hero    Background    `json:"hero"`
	Fonts   SectionFonts  `json:"fonts"`
	Colors  SectionColors `json:"colors"`
	Spacing Spacing       `json:"spacing"`
}

// GlobalFonts are the site-wide font roles.
type GlobalFonts struct {
	Primary   FontConfig `json:"primary"`
	Secondary FontConfig `json:"secondary"`
	Monospace FontConfig `json:"monospace"`
}

// SettingsDocument is the single current design configuration.
type SettingsDocument struct {
	Version        string                         `json:"version"`
	LastUpdated    time.Time                      `json:"lastUpdated,omitzero"`
	Sections       map[SectionID]SectionConfig    `json:"sections"`
	ProductCards   CardConfig                     `json:"productCards"`
	ProductDetails map[string]ProductDetailConfig `json:"productDetails"`
	GlobalFonts    GlobalFonts                    `json:"globalFonts"`
}

// Clone returns an independent deep copy of d.
func (d *SettingsDocument) Clone() *SettingsDocument {
	data, err := json.Marshal(d)
	if err != nil {
		// Every field is plain data; marshalling cannot fail.
		panic("model: cloning settings: " + err.Error())
	}
	var out SettingsDocument
	if err := json.Unmarshal(data, &out); err != nil {
		panic("model: cloning settings: " + err.Error())
	}
	return &out
}

// Section returns the config of id, or the default when the document lacks it.
func (d *SettingsDocument) Section(id SectionID) SectionConfig {
	if s, ok := d.Sections[id]; ok {
		return s
	}
	return DefaultSection(id)
}
