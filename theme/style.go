// Package theme implements the Theme model of §4.F: an ordered list of
// scope-selector rules, each contributing optional foreground/background
// colors and a font-style bitmask, decoded from a TextMate .tmTheme
// property list via howett.net/plist (the teacher decodes its own themes
// from a custom JSON format instead; only the plist library itself, used
// by the teacher for .tmLanguage grammars, carries over here).
package theme

import "fmt"

// Color is a 32-bit RGBA color as found in a .tmTheme "#RRGGBB"/"#RRGGBBAA"
// settings value.
type Color struct {
	R, G, B, A uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// FontStyle is a bitmask of the font-style keywords a .tmTheme settings
// dict's "fontStyle" string may combine.
type FontStyle int

const (
	Bold FontStyle = 1 << iota
	Italic
	Underline
	Strikethrough
)

func (s FontStyle) Has(f FontStyle) bool { return s&f == f }

// Style is the resolved set of attributes in effect at some point in a
// highlighted line. Each attribute tracks whether it was actually defined
// by some rule (vs inherited from an enclosing style) so that independent
// per-attribute resolution (§4.G "For each attribute, the top-scoring
// defining item wins") can tell "unset" apart from "set to zero value".
type Style struct {
	Foreground      Color
	Background      Color
	FontStyle       FontStyle
	HasForeground   bool
	HasBackground   bool
	HasFontStyle    bool
}

// Combine layers override on top of base: any attribute override defines
// replaces base's value for that attribute; undefined attributes fall
// through to base unchanged (§4.G "style = combine(top_style, ...)").
func Combine(base, override Style) Style {
	out := base
	if override.HasForeground {
		out.Foreground = override.Foreground
		out.HasForeground = true
	}
	if override.HasBackground {
		out.Background = override.Background
		out.HasBackground = true
	}
	if override.HasFontStyle {
		out.FontStyle = override.FontStyle
		out.HasFontStyle = true
	}
	return out
}
