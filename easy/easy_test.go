package easy

import (
	"context"
	"testing"

	"github.com/friedelschoen/highlight/syntax"
	"github.com/friedelschoen/highlight/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTheme = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>name</key>
	<string>Sample</string>
	<key>settings</key>
	<array>
		<dict>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#D4D4D4</string>
			</dict>
		</dict>
		<dict>
			<key>name</key>
			<string>Number</string>
			<key>scope</key>
			<string>constant.numeric</string>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#B5CEA8</string>
			</dict>
		</dict>
	</array>
</dict>
</plist>
`

func buildTestSet(t *testing.T) (*syntax.SyntaxSet, *syntax.SyntaxDefinition) {
	t.Helper()
	b := syntax.NewBuilder()
	b.Add(&syntax.SourceSyntax{
		Scope: "source.test",
		Contexts: map[string][]syntax.SourceRule{
			"main": {{Match: `\d+`, Scope: "constant.numeric.test"}},
		},
	})
	set, err := b.Link(context.Background())
	require.NoError(t, err)
	return set, set.Definition("source.test")
}

func TestLineHighlighterHighlightLine(t *testing.T) {
	set, def := buildTestSet(t)
	th, warnings := theme.Parse([]byte(sampleTheme))
	require.Empty(t, warnings)

	lh := NewLineHighlighter(set, def, th, syntax.Options{})
	spans, err := lh.HighlightLine("x42y")
	require.NoError(t, err)

	var joined string
	for _, sp := range spans {
		joined += sp.Text
	}
	assert.Equal(t, "x42y", joined, "spans must cover the entire line with no gaps")

	require.Len(t, spans, 3)
	assert.Equal(t, "42", spans[1].Text)
	require.True(t, spans[1].Style.HasForeground)
	assert.Equal(t, theme.Color{R: 0xb5, G: 0xce, B: 0xa8, A: 0xff}, spans[1].Style.Foreground)
	// outside the digit run, the theme-wide default foreground applies instead.
	require.True(t, spans[0].Style.HasForeground)
	assert.Equal(t, theme.Color{R: 0xd4, G: 0xd4, B: 0xd4, A: 0xff}, spans[0].Style.Foreground)
}

func TestScopeRangeHighlighterNextLine(t *testing.T) {
	set, def := buildTestSet(t)
	h := NewScopeRangeHighlighter(set, def, syntax.Options{})

	ranges, err := h.NextLine("x42y")
	require.NoError(t, err)
	require.Len(t, ranges, 3)
	assert.Equal(t, 0, ranges[0].Start)
	assert.Equal(t, 1, ranges[0].End)
	assert.Equal(t, 1, ranges[1].Start)
	assert.Equal(t, 3, ranges[1].End)
	assert.Equal(t, 1, ranges[1].Stack.Len())
	assert.Equal(t, 0, ranges[0].Stack.Len())
}
