package theme

import (
	"strconv"
	"strings"

	"github.com/friedelschoen/highlight/selector"
	"howett.net/plist"
)

// rawTheme mirrors the top-level structure of a .tmTheme property list.
type rawTheme struct {
	Name     string            `plist:"name"`
	Settings []rawSettingsItem `plist:"settings"`
}

// rawSettingsItem is one entry of the settings array: either the theme's
// global defaults (no name/scope, first entry by convention) or a scoped
// rule.
type rawSettingsItem struct {
	Name     string            `plist:"name"`
	Scope    string            `plist:"scope"`
	Settings map[string]string `plist:"settings"`
}

// Parse decodes a .tmTheme plist document into a Theme. Malformed
// individual scope selectors are skipped (logged by the caller via the
// returned warnings) rather than failing the whole theme, matching how
// real TextMate/Sublime theme consumers tolerate a handful of unusual
// third-party themes.
func Parse(data []byte) (*Theme, []error) {
	var raw rawTheme
	if _, err := plist.Unmarshal(data, &raw); err != nil {
		return nil, []error{err}
	}

	th := &Theme{Name: raw.Name}
	var warnings []error

	for i, item := range raw.Settings {
		if item.Scope == "" && i == 0 {
			th.Default = styleFromSettings(item.Settings)
			continue
		}
		if item.Scope == "" {
			// a later unscoped entry: TextMate themes sometimes repeat
			// global settings under "background"/"foreground" only; treat
			// as additional defaults rather than discarding.
			th.Default = Combine(th.Default, styleFromSettings(item.Settings))
			continue
		}
		sel, err := selector.ParseScopeSelectors(item.Scope)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		th.Items = append(th.Items, ThemeItem{
			Name:     item.Name,
			Selector: sel,
			Style:    styleFromSettings(item.Settings),
		})
	}
	return th, warnings
}

func styleFromSettings(m map[string]string) Style {
	var s Style
	if v, ok := m["foreground"]; ok {
		if c, err := ParseColor(v); err == nil {
			s.Foreground, s.HasForeground = c, true
		}
	}
	if v, ok := m["background"]; ok {
		if c, err := ParseColor(v); err == nil {
			s.Background, s.HasBackground = c, true
		}
	}
	if v, ok := m["fontStyle"]; ok {
		s.FontStyle, s.HasFontStyle = parseFontStyle(v), true
	}
	return s
}

func parseFontStyle(text string) FontStyle {
	var fs FontStyle
	for _, field := range strings.Fields(text) {
		switch field {
		case "bold":
			fs |= Bold
		case "italic":
			fs |= Italic
		case "underline":
			fs |= Underline
		case "strikethrough":
			fs |= Strikethrough
		}
	}
	return fs
}

// ParseColor parses a "#RRGGBB" or "#RRGGBBAA" hex color, the only form
// .tmTheme settings use.
func ParseColor(text string) (Color, error) {
	text = strings.TrimPrefix(text, "#")
	if len(text) != 6 && len(text) != 8 {
		return Color{}, strconv.ErrSyntax
	}
	r, err := strconv.ParseUint(text[0:2], 16, 8)
	if err != nil {
		return Color{}, err
	}
	g, err := strconv.ParseUint(text[2:4], 16, 8)
	if err != nil {
		return Color{}, err
	}
	b, err := strconv.ParseUint(text[4:6], 16, 8)
	if err != nil {
		return Color{}, err
	}
	a := uint64(255)
	if len(text) == 8 {
		a, err = strconv.ParseUint(text[6:8], 16, 8)
		if err != nil {
			return Color{}, err
		}
	}
	return Color{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}
