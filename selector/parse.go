package selector

import (
	"fmt"
	"strings"

	"github.com/friedelschoen/highlight/scope"
)

// Selector is a disjunction of Expr alternatives, the top-level unit used by
// both theme `scope:` strings and syntax `include`/context selectors.
// It is produced by ParseScopeSelectors.
type Selector struct {
	alts []Expr
}

// ExprKind discriminates Expr node types.
type ExprKind int

const (
	ExprPath ExprKind = iota
	ExprAnd
	ExprOr
	ExprDiff // A - B: A matches and B does not
	ExprNot
)

// Expr is a node of the scope-selector AST: plain ancestor paths combined
// with `&` (and), `|` (or), `-` (difference) and unary `-` (negation),
// matching the operators syntect's ScopeSelectors grammar supports beyond
// the plain conjunctive sequences spec.md §4.B describes directly.
type Expr struct {
	Kind     ExprKind
	Path     Path
	Children []Expr
}

// Match evaluates the expression against stack, returning the best Score
// and whether it matched at all.
func (e Expr) Match(stack *scope.Stack) (Score, bool) {
	switch e.Kind {
	case ExprPath:
		return e.Path.Match(stack)
	case ExprAnd:
		var total Score
		for _, c := range e.Children {
			sc, ok := c.Match(stack)
			if !ok {
				return Score{}, false
			}
			total.MatchedAtoms += sc.MatchedAtoms
			total.ExcludedAtoms += sc.ExcludedAtoms
			if sc.StackIndex > total.StackIndex {
				total.StackIndex = sc.StackIndex
			}
		}
		return total, true
	case ExprOr:
		var best Score
		found := false
		for _, c := range e.Children {
			sc, ok := c.Match(stack)
			if ok && (!found || best.Less(sc)) {
				best, found = sc, true
			}
		}
		return best, found
	case ExprDiff:
		base, ok := e.Children[0].Match(stack)
		if !ok {
			return Score{}, false
		}
		neg := e.Children[1]
		if _, negMatched := neg.Match(stack); negMatched {
			return Score{}, false
		}
		base.ExcludedAtoms += negAtomEstimate(neg)
		return base, true
	case ExprNot:
		_, ok := e.Children[0].Match(stack)
		return Score{}, !ok
	}
	return Score{}, false
}

func negAtomEstimate(e Expr) int {
	switch e.Kind {
	case ExprPath:
		return atomCount(e.Path)
	default:
		n := 0
		for _, c := range e.Children {
			n += negAtomEstimate(c)
		}
		return n
	}
}

// Match evaluates every alternative and returns the single best Score.
func (s Selector) Match(stack *scope.Stack) (Score, bool) {
	var best Score
	found := false
	for _, alt := range s.alts {
		sc, ok := alt.Match(stack)
		if ok && (!found || best.Less(sc)) {
			best, found = sc, true
		}
	}
	return best, found
}

// LeadingAtoms returns the first scope of each top-level alternative, for
// the highlighter's leading-atom early-rejection table (§4.G). ok is false
// when any alternative isn't a plain ExprPath (And/Or/Diff/Not selectors
// can't be reduced to a single required leading atom), in which case the
// caller should skip the optimization for this selector and always
// evaluate it in full.
func (s Selector) LeadingAtoms() (atoms []scope.Scope, ok bool) {
	for _, alt := range s.alts {
		if alt.Kind != ExprPath || len(alt.Path) == 0 {
			return nil, false
		}
		atoms = append(atoms, alt.Path[0])
	}
	return atoms, true
}

// ParseScopeSelectors parses a comma-separated top-level disjunction of
// scope-selector expressions, e.g. `"source.js meta.function, source.py - string"`.
// Supported grammar (highest to lowest precedence):
//
//	term     := '-' term | '(' expr ')' | scopePath
//	andExpr  := term ('&' term)*
//	diffExpr := andExpr ('-' andExpr)*
//	expr     := diffExpr ('|' diffExpr)*
//	selector := expr (',' expr)*
func ParseScopeSelectors(text string) (Selector, error) {
	var sel Selector
	for _, part := range splitTop(text, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p := &parser{input: part}
		e, err := p.parseExpr()
		if err != nil {
			return Selector{}, fmt.Errorf("selector: %q: %w", part, err)
		}
		p.skipSpace()
		if p.pos != len(p.input) {
			return Selector{}, fmt.Errorf("selector: %q: unexpected trailing input at %d", part, p.pos)
		}
		sel.alts = append(sel.alts, e)
	}
	return sel, nil
}

// splitTop splits text on sep at paren-nesting depth 0.
func splitTop(text string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if text[i] == sep && depth == 0 {
				parts = append(parts, text[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, text[last:])
	return parts
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseDiff()
	if err != nil {
		return Expr{}, err
	}
	children := []Expr{left}
	for {
		p.skipSpace()
		if p.peek() != '|' {
			break
		}
		p.pos++
		rhs, err := p.parseDiff()
		if err != nil {
			return Expr{}, err
		}
		children = append(children, rhs)
	}
	if len(children) == 1 {
		return left, nil
	}
	return Expr{Kind: ExprOr, Children: children}, nil
}

func (p *parser) parseDiff() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Expr{}, err
	}
	for {
		p.skipSpace()
		if p.peek() != '-' {
			break
		}
		p.pos++
		rhs, err := p.parseAnd()
		if err != nil {
			return Expr{}, err
		}
		left = Expr{Kind: ExprDiff, Children: []Expr{left, rhs}}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return Expr{}, err
	}
	children := []Expr{left}
	for {
		p.skipSpace()
		if p.peek() != '&' {
			break
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return Expr{}, err
		}
		children = append(children, rhs)
	}
	if len(children) == 1 {
		return left, nil
	}
	return Expr{Kind: ExprAnd, Children: children}, nil
}

func (p *parser) parseTerm() (Expr, error) {
	p.skipSpace()
	switch p.peek() {
	case '-':
		p.pos++
		inner, err := p.parseTerm()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprNot, Children: []Expr{inner}}, nil
	case '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return Expr{}, fmt.Errorf("expected ')' at %d", p.pos)
		}
		p.pos++
		return inner, nil
	default:
		return p.parseScopePath()
	}
}

// parseScopePath consumes a run of whitespace-separated dotted scope names.
func (p *parser) parseScopePath() (Expr, error) {
	var path Path
	for {
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.input) && isScopeChar(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == start {
			break
		}
		sc, err := scope.ParseScope(p.input[start:p.pos])
		if err != nil {
			return Expr{}, err
		}
		path = append(path, sc)
		p.skipSpace()
	}
	if len(path) == 0 {
		return Expr{}, fmt.Errorf("expected scope path at %d", p.pos)
	}
	return Expr{Kind: ExprPath, Path: path}, nil
}

func isScopeChar(c byte) bool {
	return c == '.' || c == '_' || c == '+' || c == '*' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
