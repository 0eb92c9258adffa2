package regex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// backrefPattern finds \N and \k<name> / \k'name' placeholders in a
// not-yet-compiled pattern template. Sublime grammars use these inside a
// child context's match/begin/end source to refer to captures of the rule
// that pushed the parent context (§4.E "Backreferences in captures").
var backrefPattern = regexp.MustCompile(`\\(\d+)|\\k[<']([A-Za-z_][A-Za-z0-9_]*)[>']`)

// Interpolate substitutes every \N / \k<name> placeholder in template with
// the literal (regex-escaped) text the corresponding group captured in
// ancestorMatch against ancestorText. Compilation of the resulting pattern
// is the caller's responsibility and should be deferred until an ancestor
// match actually exists (§4.E, §9 "Backreferences across context frames").
func Interpolate(template, ancestorText string, ancestorMatch *Match) string {
	if ancestorMatch == nil || !strings.Contains(template, `\`) {
		return template
	}
	return backrefPattern.ReplaceAllStringFunc(template, func(m string) string {
		sub := backrefPattern.FindStringSubmatch(m)
		var rng Range
		var ok bool
		if sub[1] != "" {
			idx, _ := strconv.Atoi(sub[1])
			rng = ancestorMatch.Group(idx)
			ok = rng.Valid()
		} else {
			rng, ok = ancestorMatch.GroupByName(sub[2])
		}
		if !ok || !rng.Valid() {
			return m
		}
		return regexp.QuoteMeta(rng.Text(ancestorText))
	})
}

// TemplateHash produces a stable cache key combining a pattern template
// with the capture ranges it was interpolated against, so a compiled
// backreference-dependent regex can be memoized per (pattern, captures).
func TemplateHash(template string, ancestorMatch *Match) string {
	if ancestorMatch == nil {
		return template
	}
	var sb strings.Builder
	sb.WriteString(template)
	for _, g := range ancestorMatch.Groups {
		fmt.Fprintf(&sb, "|%d:%d", g.Start, g.End)
	}
	return sb.String()
}
