package theme

import (
	"testing"

	"github.com/friedelschoen/highlight/scope"
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
				<key>background</key>
				<string>#1E1E1E</string>
				<key>foreground</key>
				<string>#D4D4D4</string>
			</dict>
		</dict>
		<dict>
			<key>name</key>
			<string>Comment</string>
			<key>scope</key>
			<string>comment</string>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#6A9955</string>
				<key>fontStyle</key>
				<string>italic</string>
			</dict>
		</dict>
		<dict>
			<key>name</key>
			<string>String</string>
			<key>scope</key>
			<string>string.quoted</string>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#CE9178</string>
			</dict>
		</dict>
	</array>
</dict>
</plist>
`

func TestParseTheme(t *testing.T) {
	th, warnings := Parse([]byte(sampleTheme))
	require.Empty(t, warnings)
	require.NotNil(t, th)
	assert.Equal(t, "Sample", th.Name)
	assert.True(t, th.Default.HasBackground)
	assert.Equal(t, Color{0x1e, 0x1e, 0x1e, 0xff}, th.Default.Background)
	assert.Len(t, th.Items, 2)
}

func TestThemeBestMatchMostSpecificWins(t *testing.T) {
	th, warnings := Parse([]byte(sampleTheme))
	require.Empty(t, warnings)

	stack := scope.NewStack()
	require.NoError(t, stack.Apply(scope.Push(scope.MustParseScope("string.quoted.double")), nil))

	style := th.BestMatch(stack)
	require.True(t, style.HasForeground)
	assert.Equal(t, Color{0xce, 0x91, 0x78, 0xff}, style.Foreground)
	// no rule defines fontStyle for strings; falls back to theme default (unset).
	assert.False(t, style.HasFontStyle)
	// background still comes from the global default, since no scoped rule overrides it.
	assert.True(t, style.HasBackground)
	assert.Equal(t, Color{0x1e, 0x1e, 0x1e, 0xff}, style.Background)
}

func TestThemeBestMatchNoMatch(t *testing.T) {
	th, _ := Parse([]byte(sampleTheme))
	stack := scope.NewStack()
	require.NoError(t, stack.Apply(scope.Push(scope.MustParseScope("source.go")), nil))

	style := th.BestMatch(stack)
	assert.False(t, style.HasForeground && style.Foreground != th.Default.Foreground)
	assert.Equal(t, th.Default.Foreground, style.Foreground)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff000080")
	require.NoError(t, err)
	assert.Equal(t, Color{0xff, 0x00, 0x00, 0x80}, c)

	_, err = ParseColor("not-a-color")
	assert.Error(t, err)
}
