// Package easy implements the composition layer of §4.H: LineHighlighter
// pairs a ParseState and a HighlightState so callers who don't need direct
// access to either can highlight a document one line at a time.
package easy

import (
	"github.com/friedelschoen/highlight/highlight"
	"github.com/friedelschoen/highlight/syntax"
	"github.com/friedelschoen/highlight/theme"
)

// LineHighlighter composes a syntax.ParseState and a highlight.HighlightState.
// It is the only place where per-line caches (ParseState's lineID-keyed
// match cache) are implicitly reset, via ParseLine incrementing lineID on
// every call (§4.H "the only place where per-line caches are implicitly
// reset").
type LineHighlighter struct {
	parse     *syntax.ParseState
	highlight *highlight.HighlightState
}

// NewLineHighlighter creates a LineHighlighter positioned at def's main
// context, styled with th.
func NewLineHighlighter(set *syntax.SyntaxSet, def *syntax.SyntaxDefinition, th *theme.Theme, opts syntax.Options) *LineHighlighter {
	return &LineHighlighter{
		parse:     syntax.NewParseState(set, def, opts),
		highlight: highlight.NewHighlightState(highlight.NewHighlighter(th)),
	}
}

// HighlightLine tokenizes line and resolves each token to a style,
// returning gapless (Style, text) spans. On a parse error the spans
// produced up to the error point are still returned alongside it, since
// ParseState.ParseLine itself guarantees well-formed partial output (§7).
func (lh *LineHighlighter) HighlightLine(line string) ([]highlight.Span, error) {
	ops, perr := lh.parse.ParseLine(line)
	spans, serr := lh.highlight.Spans(line, ops)
	if perr != nil {
		return spans, perr
	}
	return spans, serr
}

// ParseState exposes the underlying parser, e.g. for callers that want to
// inspect grammar state directly.
func (lh *LineHighlighter) ParseState() *syntax.ParseState { return lh.parse }

// HighlightState exposes the underlying highlight state.
func (lh *LineHighlighter) HighlightState() *highlight.HighlightState { return lh.highlight }
