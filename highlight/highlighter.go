// Package highlight implements HighlightState and Highlighter (§4.G): live
// selector matching against a ScopeStack as ops are applied, with
// leading-atom precomputation for early rejection and per-attribute
// independent style resolution.
package highlight

import (
	"github.com/friedelschoen/highlight/scope"
	"github.com/friedelschoen/highlight/selector"
	"github.com/friedelschoen/highlight/theme"
)

// compiledItem pairs a theme.ThemeItem with its precomputed leading-atom
// rejection data.
type compiledItem struct {
	item      *theme.ThemeItem
	leading   atomBitset
	universal bool // true: selector isn't reducible to simple leading atoms, always tried
}

// Highlighter wraps a Theme and precomputes, for each theme item, the set
// of leading scope-atom bitmasks that permit early rejection (§4.G).
type Highlighter struct {
	theme *theme.Theme
	items []compiledItem
}

// NewHighlighter precompiles th's items' leading-atom sets.
func NewHighlighter(th *theme.Theme) *Highlighter {
	h := &Highlighter{theme: th, items: make([]compiledItem, len(th.Items))}
	for i := range th.Items {
		it := &th.Items[i]
		ci := compiledItem{item: it}
		atoms, ok := it.Selector.LeadingAtoms()
		if !ok {
			ci.universal = true
		} else {
			for _, a := range atoms {
				ci.leading.set(a.FirstAtom())
			}
		}
		h.items[i] = ci
	}
	return h
}

// Theme returns the underlying theme.
func (h *Highlighter) Theme() *theme.Theme { return h.theme }

// bestMatch implements §4.G's best_theme_match, restricted by the
// leading-atom filter to the items that could conceivably match the
// current stack. counts tracks, per atom id, how many live stack frames
// currently have that atom as their own first atom (maintained
// incrementally by HighlightState).
func (h *Highlighter) bestMatch(stack *scope.Stack, counts map[uint16]int) theme.Style {
	var (
		out                       theme.Style
		fgScore, bgScore, fsScore selector.Score
		haveFg, haveBg, haveFs    bool
	)
	for _, ci := range h.items {
		if !ci.universal && !ci.leading.intersects(counts) {
			continue
		}
		score, ok := ci.item.Selector.Match(stack)
		if !ok {
			continue
		}
		if ci.item.Style.HasForeground && (!haveFg || fgScore.Less(score)) {
			out.Foreground, out.HasForeground = ci.item.Style.Foreground, true
			fgScore, haveFg = score, true
		}
		if ci.item.Style.HasBackground && (!haveBg || bgScore.Less(score)) {
			out.Background, out.HasBackground = ci.item.Style.Background, true
			bgScore, haveBg = score, true
		}
		if ci.item.Style.HasFontStyle && (!haveFs || fsScore.Less(score)) {
			out.FontStyle, out.HasFontStyle = ci.item.Style.FontStyle, true
			fsScore, haveFs = score, true
		}
	}
	if !out.HasForeground && h.theme.Default.HasForeground {
		out.Foreground, out.HasForeground = h.theme.Default.Foreground, true
	}
	if !out.HasBackground && h.theme.Default.HasBackground {
		out.Background, out.HasBackground = h.theme.Default.Background, true
	}
	if !out.HasFontStyle && h.theme.Default.HasFontStyle {
		out.FontStyle, out.HasFontStyle = h.theme.Default.FontStyle, true
	}
	return out
}
