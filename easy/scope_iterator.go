package easy

import (
	"github.com/friedelschoen/highlight/scope"
	"github.com/friedelschoen/highlight/syntax"
)

// ScopeRange is one contiguous byte range of a line sharing an identical
// scope stack, without any theme resolution applied.
type ScopeRange struct {
	Start, End int
	Stack      *scope.Stack // independent snapshot; safe to keep past the next call
}

// ScopeRangeHighlighter pairs a ParseState with a bare scope.Stack, for
// consumers doing classed HTML output or scope analysis that have no use
// for resolved colors (§4.H "ScopeRangeIterator ... without styles").
type ScopeRangeHighlighter struct {
	parse *syntax.ParseState
	stack *scope.Stack
}

// NewScopeRangeHighlighter creates a ScopeRangeHighlighter positioned at
// def's main context.
func NewScopeRangeHighlighter(set *syntax.SyntaxSet, def *syntax.SyntaxDefinition, opts syntax.Options) *ScopeRangeHighlighter {
	return &ScopeRangeHighlighter{
		parse: syntax.NewParseState(set, def, opts),
		stack: scope.NewStack(),
	}
}

// NextLine tokenizes line and returns the gapless sequence of scope-stack
// ranges it covers. Each ScopeRange.Stack is an independent clone, so the
// caller may retain them across calls without aliasing concerns.
func (h *ScopeRangeHighlighter) NextLine(line string) ([]ScopeRange, error) {
	ops, perr := h.parse.ParseLine(line)

	var ranges []ScopeRange
	cursor := 0
	for _, o := range ops {
		if o.Offset > cursor {
			ranges = append(ranges, ScopeRange{Start: cursor, End: o.Offset, Stack: h.stack.Clone()})
			cursor = o.Offset
		}
		if err := h.stack.Apply(o.Op, nil); err != nil {
			if perr == nil {
				perr = err
			}
			break
		}
	}
	if cursor < len(line) {
		ranges = append(ranges, ScopeRange{Start: cursor, End: len(line), Stack: h.stack.Clone()})
	}
	return ranges, perr
}

// ParseState exposes the underlying parser.
func (h *ScopeRangeHighlighter) ParseState() *syntax.ParseState { return h.parse }
