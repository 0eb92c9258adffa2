package highlight

import (
	"github.com/friedelschoen/highlight/syntax"
	"github.com/friedelschoen/highlight/theme"
)

// Span is one contiguous run of line text under a single resolved Style.
type Span struct {
	Style theme.Style
	Text  string
}

// Spans consumes ops (as produced by syntax.ParseState.ParseLine) against
// hs, in order, and emits the (Style, text) spans that cover line with no
// gaps (§4.G "emits (Style, &str) spans covering the entire line with no
// gaps"). hs is mutated as ops are applied, so calling Spans again for the
// next line continues from wherever this call left the scope/style stack.
func (hs *HighlightState) Spans(line string, ops []syntax.Op) ([]Span, error) {
	var spans []Span
	cursor := 0
	for _, o := range ops {
		if o.Offset > cursor {
			spans = append(spans, Span{Style: hs.TopStyle(), Text: line[cursor:o.Offset]})
			cursor = o.Offset
		}
		if err := hs.Apply(o.Op); err != nil {
			return spans, err
		}
	}
	if cursor < len(line) {
		spans = append(spans, Span{Style: hs.TopStyle(), Text: line[cursor:]})
	}
	return spans, nil
}
