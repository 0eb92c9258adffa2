// Package regex wraps the Oniguruma regex engine (via cgo) to provide the
// Oniguruma-compatible subset required by §1/§4.D of the grammar engine:
// named captures, backreferences, and lookaround. It is adapted from the
// teacher's cgo binding, extended with named-group lookup (used by
// backreference-template interpolation, §4.E) and a Match value type that
// carries capture ranges instead of a bare []Range.
package regex

// #cgo pkg-config: oniguruma
// #include <oniguruma.h>
// #include <stdlib.h>
//
// int highlight_error_to_str(UChar* err_buf, int err_code, OnigErrorInfo* info) {
//     return info != NULL ? onig_error_code_to_str(err_buf, err_code, info) : onig_error_code_to_str(err_buf, err_code);
// }
import "C"

import (
	"errors"
	"fmt"
	"regexp"
	"unsafe"
)

// ErrSyntax is returned for any Oniguruma compile-time syntax error; the
// underlying Oniguruma message is wrapped alongside it.
var ErrSyntax = errors.New("regex: syntax error")

// Option mirrors a subset of Oniguruma's ONIG_OPTION_* flags.
type Option C.OnigOptionType

const (
	OptionNone        Option = C.ONIG_OPTION_NONE
	OptionIgnoreCase  Option = C.ONIG_OPTION_IGNORECASE
	OptionMultiline   Option = C.ONIG_OPTION_MULTILINE
	OptionNotBegin    Option = C.ONIG_OPTION_NOT_BEGIN_POSITION
	OptionFindNotEmpty Option = C.ONIG_OPTION_FIND_NOT_EMPTY
)

// Range is a half-open byte range [Start, End) within the searched text.
type Range struct {
	Start, End int
}

// Len reports the length of the range; an unmatched (nonparticipating)
// group reports a zero-length range at (-1,-1) per Oniguruma convention,
// so callers should check Valid() before trusting Len/Text.
func (r Range) Len() int { return r.End - r.Start }

// Valid reports whether the group actually participated in the match.
func (r Range) Valid() bool { return r.Start >= 0 && r.End >= 0 }

// Text slices str using the range.
func (r Range) Text(str string) string {
	if !r.Valid() {
		return ""
	}
	return str[r.Start:r.End]
}

// Match is the result of a successful search: Groups[0] is the whole match,
// Groups[i] for i>0 are numbered capture groups.
type Match struct {
	Groups []Range
	names  map[string]int
}

// Group returns the i'th capture group (0 == whole match).
func (m *Match) Group(i int) Range {
	if i < 0 || i >= len(m.Groups) {
		return Range{-1, -1}
	}
	return m.Groups[i]
}

// GroupByName resolves a named capture (e.g. from \k<name>) to its range.
func (m *Match) GroupByName(name string) (Range, bool) {
	idx, ok := m.names[name]
	if !ok {
		return Range{}, false
	}
	return m.Group(idx), true
}

// Regexp is a compiled Oniguruma pattern plus the name -> group-index table
// this package derives from the source text (Oniguruma's own name API is
// not exposed here; the mapping is reconstructed by scanning for
// "(?<name>" / "(?'name'" in left-to-right capture order, which matches how
// Oniguruma itself numbers named groups).
type Regexp struct {
	c       C.OnigRegex
	pattern string
	names   map[string]int
}

// namePattern recognizes named-group openers in left to right order.
var namePattern = regexp.MustCompile(`\(\?P?[<']([A-Za-z_][A-Za-z0-9_]*)[>']`)

// capturePattern recognizes any opening parenthesis that starts a capturing
// group (named or plain), used to count group numbers in declaration order.
var capturePattern = regexp.MustCompile(`\((?:\?P?<[A-Za-z_][A-Za-z0-9_]*>|\?P?'[A-Za-z_][A-Za-z0-9_]*'|[^?])`)

func deriveNames(pattern string) map[string]int {
	names := make(map[string]int)
	groupIdx := 0
	// walk capturing-group openers in order, matching named ones against namePattern
	caps := capturePattern.FindAllStringIndex(pattern, -1)
	for _, loc := range caps {
		groupIdx++
		sub := pattern[loc[0]:]
		if m := namePattern.FindStringSubmatch(sub); m != nil && sub[0] == '(' {
			// only accept when the named-group syntax starts exactly here
			if namePattern.FindStringIndex(sub)[0] == 0 {
				names[m[1]] = groupIdx
			}
		}
	}
	return names
}

// Compile compiles an Oniguruma pattern with the given options.
func Compile(pattern string, option Option) (*Regexp, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", ErrSyntax)
	}
	r := &Regexp{pattern: pattern, names: deriveNames(pattern)}
	buf := []byte(pattern)
	start := (*C.OnigUChar)(unsafe.Pointer(&buf[0]))
	end := (*C.OnigUChar)(unsafe.Pointer(uintptr(unsafe.Pointer(&buf[0])) + uintptr(len(buf))))

	var errinfo C.OnigErrorInfo
	ret := C.onig_new(&r.c, start, end, C.OnigOptionType(option), C.ONIG_ENCODING_UTF8, C.ONIG_SYNTAX_DEFAULT, &errinfo)
	if ret != C.ONIG_NORMAL {
		var errBuf [C.ONIG_MAX_ERROR_MESSAGE_LEN]C.char
		C.highlight_error_to_str((*C.OnigUChar)(unsafe.Pointer(&errBuf[0])), ret, &errinfo)
		return nil, fmt.Errorf("%w: %s", ErrSyntax, C.GoString(&errBuf[0]))
	}
	return r, nil
}

// Free releases the underlying Oniguruma regex object.
func (r *Regexp) Free() {
	if r.c != nil {
		C.onig_free(r.c)
		r.c = nil
	}
}

// String returns the original pattern source.
func (r *Regexp) String() string { return r.pattern }

// NamedGroups exposes the name -> group-index table.
func (r *Regexp) NamedGroups() map[string]int { return r.names }

// Find searches text[from:to] for the earliest match starting at or after
// from, returning nil if there is no match. options lets callers pass
// ONIG_OPTION_NOT_BEGIN_POSITION etc. for mid-line searches.
func (r *Regexp) Find(text string, from, to int, options Option) (*Match, error) {
	// trailing NUL keeps &buf[0] valid for an empty line; it lies past `to`
	// and is never searched.
	buf := append([]byte(text), 0)
	base := (*C.OnigUChar)(unsafe.Pointer(&buf[0]))
	start := (*C.OnigUChar)(unsafe.Pointer(uintptr(unsafe.Pointer(&buf[0])) + uintptr(from)))
	limit := (*C.OnigUChar)(unsafe.Pointer(uintptr(unsafe.Pointer(&buf[0])) + uintptr(to)))

	region := C.onig_region_new()
	defer C.onig_region_free(region, 1)

	// onig_search scans forward from `start` for the first position with a
	// match, unlike onig_match which only tests position `start` itself.
	ret := C.onig_search(r.c, base, limit, start, limit, region, C.OnigOptionType(options))
	if ret == C.ONIG_MISMATCH {
		return nil, nil
	} else if ret < 0 {
		var errBuf [C.ONIG_MAX_ERROR_MESSAGE_LEN]C.char
		C.highlight_error_to_str((*C.OnigUChar)(unsafe.Pointer(&errBuf[0])), C.int(ret), nil)
		return nil, fmt.Errorf("%w: %s", ErrSyntax, C.GoString(&errBuf[0]))
	}

	groups := make([]Range, region.num_regs)
	for i := range int(region.num_regs) {
		beg := *(*C.int)(unsafe.Pointer(uintptr(unsafe.Pointer(region.beg)) + uintptr(i)*unsafe.Sizeof(*region.beg)))
		e := *(*C.int)(unsafe.Pointer(uintptr(unsafe.Pointer(region.end)) + uintptr(i)*unsafe.Sizeof(*region.end)))
		groups[i] = Range{int(beg), int(e)}
	}
	return &Match{Groups: groups, names: r.names}, nil
}
