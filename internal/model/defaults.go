// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Default palette and typography of the site.
const (
	defaultInk        = "#1f2933"
	defaultInkMuted   = "#616e7c"
	defaultAccent     = "#d97706"
	defaultPaper      = "#ffffff"
	defaultConcrete   = "#f3f4f6"
	defaultNight      = "#111827"
	defaultSansFamily = "Pretendard"
	defaultSerifFont  = "Noto Serif KR"
	defaultMonoFamily = "JetBrains Mono"
)

func headingFont(size string) FontConfig {
	return FontConfig{Family: defaultSansFamily, Source: FontCustom, Weight: 700, Size: size, LineHeight: "1.2", LetterSpacing: "-0.02em"}
}

func bodyFont() FontConfig {
	return FontConfig{Family: defaultSansFamily, Source: FontCustom, Weight: 400, Size: "1rem", LineHeight: "1.7"}
}

func lightColors() SectionColors {
	return SectionColors{
		Heading: ColorValue{Value: defaultInk},
		Text:    ColorValue{Value: defaultInk},
		Accent:  ColorValue{Value: defaultAccent},
		Muted:   ColorValue{Value: defaultInkMuted},
	}
}

func darkColors() SectionColors {
	return SectionColors{
		Heading: ColorValue{Value: defaultPaper},
		Text:    ColorValue{Value: "#e5e7eb"},
		Accent:  ColorValue{Value: defaultAccent},
		Muted:   ColorValue{Value: "#9ca3af"},
	}
}

func sectionSpacing() Spacing {
	return Spacing{PaddingTop: "6rem", PaddingBottom: "6rem", Gap: "2rem"}
}

// DefaultSection returns the default config of a section. Unknown ids get the
// plain light section.
func DefaultSection(id SectionID) SectionConfig {
	base := SectionConfig{
		Background: Background{Type: BackgroundColor, Value: defaultPaper},
		Fonts:      SectionFonts{Heading: headingFont("2.5rem"), Body: bodyFont()},
		Colors:     lightColors(),
		Spacing:    sectionSpacing(),
	}

	switch id {
	case SectionHero:
		overlay := 0.55
		base.Background = Background{
			Type:    BackgroundImage,
			Value:   "/images/hero/plant.jpg",
			Overlay: &ColorValue{Value: defaultNight, Opacity: &overlay},
		}
		base.Fonts.Heading = headingFont("3.5rem")
		base.Colors = darkColors()
		base.Spacing = Spacing{PaddingTop: "10rem", PaddingBottom: "8rem", Gap: "1.5rem"}
	case SectionAbout:
		base.Fonts.Heading.Family = defaultSerifFont
		base.Fonts.Heading.Source = FontGoogle
	case SectionProducts:
		base.Background = Background{Type: BackgroundColor, Value: defaultConcrete}
	case SectionContact:
		base.Background = Background{Type: BackgroundColor, Value: defaultNight}
		base.Colors = darkColors()
	}
	return base
}

// DefaultCardConfig returns the default product card design.
func DefaultCardConfig() CardConfig {
	return CardConfig{
		Background: Background{Type: BackgroundColor, Value: defaultPaper},
		Fonts: CardFonts{
			Title: headingFont("1.25rem"),
			Body:  FontConfig{Family: defaultSansFamily, Source: FontCustom, Weight: 400, Size: "0.9375rem", LineHeight: "1.6"},
		},
		Colors:       lightColors(),
		BorderRadius: "0.75rem",
		Padding:      "1.5rem",
		Shadow:       ShadowConfig{Enabled: true, X: 0, Y: 4, Blur: 12, Spread: 0, Color: "rgba(17, 24, 39, 0.08)"},
		HoverEffect:  HoverLift,
	}
}

// DefaultProductDetail returns the default design of a product detail page.
func DefaultProductDetail() ProductDetailConfig {
	return ProductDetailConfig{
		Hero:    Background{Type: BackgroundColor, Value: defaultNight},
		Fonts:   SectionFonts{Heading: headingFont("3rem"), Body: bodyFont()},
		Colors:  lightColors(),
		Spacing: sectionSpacing(),
	}
}

// DefaultGlobalFonts returns the default site-wide font roles.
func DefaultGlobalFonts() GlobalFonts {
	return GlobalFonts{
		Primary:   FontConfig{Family: defaultSansFamily, Source: FontCustom, Weight: 400, Size: "1rem", LineHeight: "1.7"},
		Secondary: FontConfig{Family: defaultSerifFont, Source: FontGoogle, Weight: 400, Size: "1rem", LineHeight: "1.7"},
		Monospace: FontConfig{Family: defaultMonoFamily, Source: FontGoogle, Weight: 400, Size: "0.875rem", LineHeight: "1.6"},
	}
}

// DefaultSettings returns a fresh, fully shaped default document.
// Each call returns a new value the caller may modify.
func DefaultSettings() *SettingsDocument {
	sections := make(map[SectionID]SectionConfig, len(SectionIDs))
	for _, id := range SectionIDs {
		sections[id] = DefaultSection(id)
	}
	return &SettingsDocument{
		Version:        CurrentSchemaVersion,
		Sections:       sections,
		ProductCards:   DefaultCardConfig(),
		ProductDetails: map[string]ProductDetailConfig{},
		GlobalFonts:    DefaultGlobalFonts(),
	}
}
