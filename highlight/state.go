package highlight

import (
	"github.com/friedelschoen/highlight/scope"
	"github.com/friedelschoen/highlight/theme"
)

// HighlightState holds the current ScopeStack and a parallel stack of
// Styles, each entry being the effective style at that stack depth (§4.G).
// Owned by a single goroutine for the life of a highlighting session,
// mirroring ParseState's ownership model (§5).
type HighlightState struct {
	highlighter *Highlighter
	stack       *scope.Stack
	styles      []theme.Style

	// clearedStyles mirrors scope.Stack's own cleared-frame stack so
	// Restore can put styles back in parallel with scopes.
	clearedStyles [][]theme.Style

	// atomCounts refcounts, per atom id, how many live stack frames have
	// that atom as their own leading atom; feeds the Highlighter's
	// early-rejection bitmask test.
	atomCounts map[uint16]int
}

// NewHighlightState creates an empty HighlightState bound to h.
func NewHighlightState(h *Highlighter) *HighlightState {
	return &HighlightState{
		highlighter: h,
		stack:       scope.NewStack(),
		atomCounts:  make(map[uint16]int),
	}
}

// Stack exposes the live ScopeStack, read-only for callers wanting to
// inspect current scope without duplicating HighlightState's bookkeeping.
func (hs *HighlightState) Stack() *scope.Stack { return hs.stack }

// TopStyle returns the style in effect at the current (deepest) stack
// frame, or the theme's global default if the stack is empty.
func (hs *HighlightState) TopStyle() theme.Style {
	if len(hs.styles) == 0 {
		return hs.highlighter.theme.Default
	}
	return hs.styles[len(hs.styles)-1]
}

func (hs *HighlightState) adjustAtom(s scope.Scope, delta int) {
	a := s.FirstAtom()
	hs.atomCounts[a] += delta
	if hs.atomCounts[a] <= 0 {
		delete(hs.atomCounts, a)
	}
}

// Apply advances the state by one ScopeStackOp, the same stream ParseState
// emits (§3). It mirrors scope.Stack.Apply's mutation on an internally
// owned stack while keeping hs.styles (and its own cleared/restore
// bookkeeping) in lockstep.
func (hs *HighlightState) Apply(op scope.ScopeStackOp) error {
	switch op.Kind {
	case scope.OpPush:
		if err := hs.stack.Apply(op, nil); err != nil {
			return err
		}
		hs.adjustAtom(op.Scope, 1)
		base := hs.highlighter.theme.Default
		if len(hs.styles) > 0 {
			base = hs.styles[len(hs.styles)-1]
		}
		match := hs.highlighter.bestMatch(hs.stack, hs.atomCounts)
		hs.styles = append(hs.styles, theme.Combine(base, match))
		return nil

	case scope.OpPop:
		n := op.N
		if n > hs.stack.Len() {
			return scope.ErrStackUnderflow
		}
		for i := 0; i < n; i++ {
			hs.adjustAtom(hs.stack.At(hs.stack.Len()-1-i), -1)
		}
		if err := hs.stack.Apply(op, nil); err != nil {
			return err
		}
		hs.styles = hs.styles[:len(hs.styles)-n]
		return nil

	case scope.OpClear:
		n := op.Clear.TopN
		if op.Clear.All || n > hs.stack.Len() {
			n = hs.stack.Len()
		}
		removed := append([]theme.Style(nil), hs.styles[len(hs.styles)-n:]...)
		for i := 0; i < n; i++ {
			hs.adjustAtom(hs.stack.At(hs.stack.Len()-1-i), -1)
		}
		if err := hs.stack.Apply(op, nil); err != nil {
			return err
		}
		hs.styles = hs.styles[:len(hs.styles)-n]
		hs.clearedStyles = append(hs.clearedStyles, removed)
		return nil

	case scope.OpRestore:
		if len(hs.clearedStyles) == 0 {
			return scope.ErrNoMatchingClear
		}
		beforeLen := hs.stack.Len()
		if err := hs.stack.Apply(op, nil); err != nil {
			return err
		}
		for i := beforeLen; i < hs.stack.Len(); i++ {
			hs.adjustAtom(hs.stack.At(i), 1)
		}
		last := hs.clearedStyles[len(hs.clearedStyles)-1]
		hs.clearedStyles = hs.clearedStyles[:len(hs.clearedStyles)-1]
		hs.styles = append(hs.styles, last...)
		return nil

	default:
		return nil
	}
}
