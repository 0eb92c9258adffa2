package syntax

import (
	"sort"
	"unicode/utf8"

	"github.com/friedelschoen/highlight/regex"
	"github.com/friedelschoen/highlight/scope"
	"go.uber.org/zap"
)

// loopLimit is the zero-width recursion cap (§4.E "Zero-width loop
// detection"), matching Sublime's observed 20-iteration cap.
const loopLimit = 20

// Op pairs a byte offset with the ScopeStackOp to apply there, the unit the
// parser streams to a consumer (§3 data flow).
type Op struct {
	Offset int
	Op     scope.ScopeStackOp
}

// frame is one entry of the context stack (§4.E "State").
type frame struct {
	ctxId         ContextId
	withPrototype ContextId // InvalidContextId if none active
	escape        *MatchPattern // synthesized embed escape rule, tried first; nil outside embeds
	pushedScopes  int           // number of scope.Push ops emitted when this frame was entered, so Pop can undo exactly that many
	pushMatch     *regex.Match  // captures of the rule that pushed this frame, for child backreferences
	pushText      string
}

// Options configures a ParseState.
type Options struct {
	// IgnoreErrors, when true, disables an offending pattern for the rest
	// of the session instead of aborting the parse on regex compile
	// failure (§7 "Propagation policy").
	IgnoreErrors bool
	Logger       *zap.Logger
	// OnLoopAbandon is invoked (if non-nil) whenever the zero-width loop
	// guard disables a pattern; never fatal, purely informational (§7).
	OnLoopAbandon func(contextName string, offset int)
}

// ParseState is the stack-based regex-driven state machine of §4.E. It is
// owned by a single goroutine for the life of a parse (§5) and borrows
// read-only from a shared *SyntaxSet.
type ParseState struct {
	set *SyntaxSet
	def *SyntaxDefinition

	stack []frame

	lineID int64
	cache  map[*MatchPattern]*matchCacheEntry

	disabled map[*MatchPattern]bool

	// loopCtx/loopCount track consecutive zero-width matches in the same
	// context, irrespective of cursor: ParseLine always forces cursor
	// forward by at least one rune after a zero-width match (see the
	// forced advance below), so the cursor value itself never repeats and can't
	// be used as part of the loop key. A rule that matches zero-width and
	// also pushes a new frame onto the same context grows the stack by one
	// frame per rune with no actual consumption — the danger this guard
	// exists to catch (§4.E "Zero-width loop detection") — so the key must
	// survive the forced cursor advance. Persists across ParseLine calls
	// (never reset per line) so the cap also catches a rule that keeps
	// landing just past the 20-iteration mark on successive short lines.
	loopCtx   ContextId
	loopCount int

	opts Options
}

// NewParseState creates a parser positioned at def's "main" context.
func NewParseState(set *SyntaxSet, def *SyntaxDefinition, opts Options) *ParseState {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ps := &ParseState{
		set:      set,
		def:      def,
		cache:    make(map[*MatchPattern]*matchCacheEntry),
		disabled: make(map[*MatchPattern]bool),
		loopCtx:  InvalidContextId,
		opts:     opts,
	}
	main, ok := def.Contexts["main"]
	if !ok {
		for _, id := range def.Contexts {
			main = id
			break
		}
	}
	ps.stack = append(ps.stack, ps.enterFrame(main, InvalidContextId, nil, nil, "", 0, nil))
	return ps
}

// enterFrame builds a new stack frame for ctx, returning it along with the
// Push ops required to enter it (ClearScopes, then MetaScope, then
// MetaContentScope), appended at offset to ops if ops is non-nil. With a nil
// ops no scope is pushed, so the frame records no pushed scopes.
func (ps *ParseState) enterFrame(ctx ContextId, withProto ContextId, escape *MatchPattern, pushMatch *regex.Match, pushText string, offset int, ops *[]Op) frame {
	c := ps.set.Context(ctx)
	f := frame{ctxId: ctx, withPrototype: withProto, escape: escape, pushMatch: pushMatch, pushText: pushText}
	if withProto == InvalidContextId {
		f.withPrototype = InvalidContextId
	}
	if ops != nil {
		if c.ClearScopes != nil {
			*ops = append(*ops, Op{Offset: offset, Op: scope.Clear(*c.ClearScopes)})
		}
		for _, s := range c.MetaScope {
			*ops = append(*ops, Op{Offset: offset, Op: scope.Push(s)})
			f.pushedScopes++
		}
		for _, s := range c.MetaContentScope {
			*ops = append(*ops, Op{Offset: offset, Op: scope.Push(s)})
			f.pushedScopes++
		}
	}
	return f
}

func (ps *ParseState) top() *frame { return &ps.stack[len(ps.stack)-1] }

// effectivePatterns computes own_patterns ++ inherited_prototype_patterns
// ++ overlay_patterns for the top frame, per §4.E step 2.a and design
// note 9. A synthesized embed-escape rule, if any, is tried first.
func (ps *ParseState) effectivePatterns(f *frame) []*MatchPattern {
	c := ps.set.Context(f.ctxId)
	var out []*MatchPattern
	if f.escape != nil {
		out = append(out, f.escape)
	}
	out = append(out, c.Patterns...)
	if c.IncludePrototype && ps.def.Prototype != InvalidContextId {
		out = append(out, ps.set.Context(ps.def.Prototype).Patterns...)
	}
	if f.withPrototype != InvalidContextId {
		out = append(out, ps.set.Context(f.withPrototype).Patterns...)
	}
	return out
}

func (ps *ParseState) cacheFor(p *MatchPattern) *matchCacheEntry {
	e, ok := ps.cache[p]
	if !ok {
		e = &matchCacheEntry{lineID: -1}
		ps.cache[p] = e
	}
	return e
}

// findMatch applies §4.D's per-line monotonic cache: a "no match from
// start" answer is reused for any later query at pos >= start within the
// same line, since the search stream is monotonic in pos per context frame.
func (ps *ParseState) findMatch(p *MatchPattern, line string, pos int, ancestorText string, ancestorMatch *regex.Match) (*regex.Match, error) {
	e := ps.cacheFor(p)
	if e.hasResult && e.lineID == ps.lineID && e.start <= pos {
		if e.match == nil {
			return nil, nil
		}
		if e.match.Group(0).Start >= pos {
			return e.match, nil
		}
	}
	re, err := p.regexFor(ancestorText, ancestorMatch)
	if err != nil {
		return nil, err
	}
	m, err := re.Find(line, pos, len(line), 0)
	if err != nil {
		return nil, err
	}
	e.lineID = ps.lineID
	e.start = pos
	e.hasResult = true
	e.match = m
	return m, nil
}

type captureSpan struct {
	start, end int
	scopes     []scope.Scope
}

// captureOps builds push/pop ops for a rule's captures, correctly nested
// (regex capture groups are always either disjoint or properly nested, so
// a simple recursive tree walk in start order yields correct bracketing).
func captureOps(offset int, m *regex.Match, captures map[int][]scope.Scope, out *[]Op) {
	var spans []captureSpan
	for idx, scopes := range captures {
		if idx == 0 || idx >= len(m.Groups) {
			continue
		}
		g := m.Group(idx)
		if !g.Valid() || g.Len() == 0 {
			continue
		}
		spans = append(spans, captureSpan{start: g.Start, end: g.End, scopes: scopes})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end // wider span (outer) first
	})
	emitNested(offset, spans, out)
}

// emitNested recursively emits push/pop pairs honoring nesting.
func emitNested(offset int, spans []captureSpan, out *[]Op) {
	for i := 0; i < len(spans); i++ {
		s := spans[i]
		var children []captureSpan
		j := i + 1
		for j < len(spans) && spans[j].start < s.end {
			children = append(children, spans[j])
			j++
		}
		for _, sc := range s.scopes {
			*out = append(*out, Op{Offset: offset + s.start, Op: scope.Push(sc)})
		}
		emitNested(offset, children, out)
		*out = append(*out, Op{Offset: offset + s.end, Op: scope.Pop(len(s.scopes))})
		i = j - 1
	}
}

// ParseLine tokenizes one line of text (no trailing newline assumed to be
// special-cased; grammars that want newline-triggered pops write ordinary
// `$`-anchored rules, §4.E step 3), returning the ordered stream of
// (offset, ScopeStackOp) to apply. offset is relative to the start of line;
// callers composing multiple lines add their own running base offset.
func (ps *ParseState) ParseLine(line string) ([]Op, error) {
	ps.lineID++
	var ops []Op
	cursor := 0

	for cursor <= len(line) {
		top := ps.top()
		candidates := ps.effectivePatterns(top)

		bestI := -1
		var bestMatch *regex.Match
		for i, pat := range candidates {
			if ps.disabled[pat] {
				continue
			}
			m, err := ps.findMatch(pat, line, cursor, top.pushText, top.pushMatch)
			if err != nil {
				if ps.opts.IgnoreErrors {
					ps.disabled[pat] = true
					ps.opts.Logger.Warn("disabling pattern after compile error", zap.String("pattern", pat.Source), zap.Error(err))
					continue
				}
				return ps.drain(ops, cursor), err
			}
			if m == nil {
				continue
			}
			start := m.Group(0).Start
			if bestI == -1 || start < bestMatch.Group(0).Start {
				bestI, bestMatch = i, m
			}
		}

		if bestI == -1 {
			break
		}
		pat := candidates[bestI]
		matchStart := bestMatch.Group(0).Start
		matchEnd := bestMatch.Group(0).End

		if matchStart == cursor && matchEnd == matchStart {
			if ps.loopCtx == top.ctxId {
				ps.loopCount++
			} else {
				ps.loopCtx, ps.loopCount = top.ctxId, 1
			}
			if ps.loopCount > loopLimit {
				ps.disabled[pat] = true
				if ps.opts.OnLoopAbandon != nil {
					ps.opts.OnLoopAbandon(ps.set.Context(top.ctxId).Name, cursor)
				}
				ps.opts.Logger.Info("abandoning zero-width pattern", zap.Int("offset", cursor))
				continue
			}
		} else {
			ps.loopCount = 0
		}

		if len(pat.Scope) > 0 {
			for _, s := range pat.Scope {
				ops = append(ops, Op{Offset: matchStart, Op: scope.Push(s)})
			}
		}
		captureOps(0, bestMatch, pat.Captures, &ops)
		if len(pat.Scope) > 0 {
			ops = append(ops, Op{Offset: matchEnd, Op: scope.Pop(len(pat.Scope))})
		}

		if err := ps.applyAction(pat, bestMatch, line, matchEnd, &ops); err != nil {
			return ps.drain(ops, matchEnd), err
		}

		if matchEnd == cursor {
			_, size := utf8.DecodeRuneInString(line[cursor:])
			cursor += max(size, 1)
		} else {
			cursor = matchEnd
		}
	}

	return ops, nil
}

// applyAction executes a matched pattern's stack effect (§4.E step 2.f).
func (ps *ParseState) applyAction(pat *MatchPattern, m *regex.Match, line string, endPos int, ops *[]Op) error {
	switch pat.Action.Kind {
	case ActionNone:
		return nil
	case ActionPush:
		for _, target := range pat.Action.Targets {
			f := ps.enterFrame(target, pat.WithPrototype, nil, m, line, endPos, ops)
			ps.stack = append(ps.stack, f)
		}
		return nil
	case ActionSet:
		old := ps.top()
		inheritedProto := old.withPrototype
		if err := ps.popFrame(1, endPos, ops); err != nil {
			return err
		}
		for i, target := range pat.Action.Targets {
			proto := pat.WithPrototype
			if proto == InvalidContextId {
				proto = inheritedProto // §4.E "set must not drop with_prototype"
			}
			_ = i
			f := ps.enterFrame(target, proto, nil, m, line, endPos, ops)
			ps.stack = append(ps.stack, f)
		}
		return nil
	case ActionPop:
		n := pat.Action.PopCount
		if n <= 0 {
			n = 1
		}
		return ps.popFrame(n, endPos, ops)
	case ActionEmbed:
		f := ps.enterFrame(pat.Action.Embedded, pat.WithPrototype, pat.Action.Escape, m, line, endPos, ops)
		if !pat.Action.EmbedScope.IsEmpty() {
			*ops = append(*ops, Op{Offset: endPos, Op: scope.Push(pat.Action.EmbedScope)})
			f.pushedScopes++
		}
		ps.stack = append(ps.stack, f)
		return nil
	}
	return nil
}

// popFrame pops n context frames, emitting the ScopeStack Pop needed to
// undo exactly what those frames pushed on entry (§4.E step 2.f, §7 "on
// fatal error, the engine drains the scope stack").
func (ps *ParseState) popFrame(n, offset int, ops *[]Op) error {
	// The bottom frame is the grammar's entry ("main") context; popping it
	// away is a stack underflow exactly like scope.Stack.Apply rejects an
	// empty-stack Pop (§4.A, §7 "stack underflow").
	if len(ps.stack) <= 1 {
		return ErrStackUnderflow
	}
	if n > len(ps.stack)-1 {
		n = len(ps.stack) - 1
	}
	var total int
	for i := 0; i < n; i++ {
		total += ps.stack[len(ps.stack)-1].pushedScopes
		ps.stack = ps.stack[:len(ps.stack)-1]
	}
	if total > 0 {
		*ops = append(*ops, Op{Offset: offset, Op: scope.Pop(total)})
	}
	return nil
}

// drain closes every remaining open scope so that partial output up to a
// fatal error is well-formed, per §7 "partial output up to the error point
// is well-formed (no dangling unclosed scopes)".
func (ps *ParseState) drain(ops []Op, offset int) []Op {
	var total int
	for _, f := range ps.stack {
		total += f.pushedScopes
	}
	if total > 0 {
		ops = append(ops, Op{Offset: offset, Op: scope.Pop(total)})
	}
	ps.stack = nil
	return ops
}
