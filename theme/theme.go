package theme

import (
	"github.com/friedelschoen/highlight/scope"
	"github.com/friedelschoen/highlight/selector"
)

// ThemeItem is one scoped rule of a Theme (§4.F): a selector plus whichever
// of foreground/background/font-style it defines.
type ThemeItem struct {
	Name     string
	Selector selector.Selector
	Style    Style
}

// Theme is an ordered, immutable set of ThemeItems plus the global default
// style, decoded from a .tmTheme document (§4.F). Safe for concurrent
// read-only use across any number of highlighting sessions (§5).
type Theme struct {
	Name    string
	Default Style
	Items   []ThemeItem
}

// BestMatch implements §4.G's best_theme_match: every item's selector is
// scored against stack, and for each attribute independently the
// highest-scoring item that actually defines that attribute wins. Items
// that don't match at all contribute nothing. The returned Style's
// Has* fields are set only for attributes some item (or the theme
// default, as a final fallback) defined.
func (t *Theme) BestMatch(stack *scope.Stack) Style {
	var (
		out                              Style
		fgScore, bgScore, fsScore        selector.Score
		haveFg, haveBg, haveFs           bool
	)
	for _, item := range t.Items {
		score, ok := item.Selector.Match(stack)
		if !ok {
			continue
		}
		if item.Style.HasForeground && (!haveFg || fgScore.Less(score)) {
			out.Foreground, out.HasForeground = item.Style.Foreground, true
			fgScore, haveFg = score, true
		}
		if item.Style.HasBackground && (!haveBg || bgScore.Less(score)) {
			out.Background, out.HasBackground = item.Style.Background, true
			bgScore, haveBg = score, true
		}
		if item.Style.HasFontStyle && (!haveFs || fsScore.Less(score)) {
			out.FontStyle, out.HasFontStyle = item.Style.FontStyle, true
			fsScore, haveFs = score, true
		}
	}
	if !out.HasForeground && t.Default.HasForeground {
		out.Foreground, out.HasForeground = t.Default.Foreground, true
	}
	if !out.HasBackground && t.Default.HasBackground {
		out.Background, out.HasBackground = t.Default.Background, true
	}
	if !out.HasFontStyle && t.Default.HasFontStyle {
		out.FontStyle, out.HasFontStyle = t.Default.FontStyle, true
	}
	return out
}
