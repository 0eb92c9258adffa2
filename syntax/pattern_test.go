package syntax

import (
	"sync"
	"testing"

	"github.com/friedelschoen/highlight/regex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMatchPatternConcurrentCompileConverges drives many goroutines through
// regexFor's first-use race (§5, §9): every caller may lose the CAS and
// compile its own Regexp, but all of them must observe the same winning
// pointer afterward, and none of the losers' Oniguruma handles may leak.
func TestMatchPatternConcurrentCompileConverges(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &MatchPattern{Source: `[a-z]+\d*`}

	const workers = 32
	results := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			re, err := p.regexFor("", nil)
			require.NoError(t, err)
			results[i] = re.String()
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.Equal(t, `[a-z]+\d*`, s)
	}

	re := p.compiled.Load()
	require.NotNil(t, re)
	assert.Equal(t, `[a-z]+\d*`, re.String())
}

// TestMatchPatternBackrefCompileMemoizesPerTemplate exercises the backref
// path's sync.Map memoization (§4.E, §9): concurrent regexFor calls for the
// same ancestor text must converge on one compiled Regexp per template hash,
// with every losing compile freed rather than leaked.
func TestMatchPatternBackrefCompileMemoizesPerTemplate(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &MatchPattern{Source: `\1`, HasBackrefs: true}
	ancestor := &regex.Match{Groups: []regex.Range{{Start: 0, End: 3}, {Start: 0, End: 3}}}

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := p.regexFor("abc", ancestor)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	count := 0
	p.backrefCompiled.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count, "every concurrent compile of the same template must collapse to a single cached entry")
}
