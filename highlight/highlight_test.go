package highlight

import (
	"testing"

	"github.com/friedelschoen/highlight/scope"
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
				<key>background</key>
				<string>#1E1E1E</string>
			</dict>
		</dict>
		<dict>
			<key>name</key>
			<string>Keyword</string>
			<key>scope</key>
			<string>keyword</string>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#C586C0</string>
			</dict>
		</dict>
		<dict>
			<key>name</key>
			<string>Keyword Control</string>
			<key>scope</key>
			<string>keyword.control</string>
			<key>settings</key>
			<dict>
				<key>foreground</key>
				<string>#FF0000</string>
				<key>fontStyle</key>
				<string>bold</string>
			</dict>
		</dict>
	</array>
</dict>
</plist>
`

func TestHighlightStatePushResolvesMostSpecific(t *testing.T) {
	th, warnings := theme.Parse([]byte(sampleTheme))
	require.Empty(t, warnings)

	hs := NewHighlightState(NewHighlighter(th))
	assert.Equal(t, theme.Color{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}, hs.TopStyle().Background)
	assert.False(t, hs.TopStyle().HasForeground)

	require.NoError(t, hs.Apply(scope.Push(scope.MustParseScope("keyword.control.test"))))
	st := hs.TopStyle()
	require.True(t, st.HasForeground)
	assert.Equal(t, theme.Color{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, st.Foreground)
	require.True(t, st.HasFontStyle)
	assert.True(t, st.FontStyle.Has(theme.Bold))
	// background still inherited from the theme-wide default, since no item overrides it.
	assert.Equal(t, theme.Color{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}, st.Background)
}

func TestHighlightStatePopRestoresPriorStyle(t *testing.T) {
	th, _ := theme.Parse([]byte(sampleTheme))
	hs := NewHighlightState(NewHighlighter(th))

	require.NoError(t, hs.Apply(scope.Push(scope.MustParseScope("keyword.control.test"))))
	require.NoError(t, hs.Apply(scope.Pop(1)))

	st := hs.TopStyle()
	assert.False(t, st.HasForeground)
}

func TestHighlightStateClearAndRestore(t *testing.T) {
	th, _ := theme.Parse([]byte(sampleTheme))
	hs := NewHighlightState(NewHighlighter(th))

	require.NoError(t, hs.Apply(scope.Push(scope.MustParseScope("keyword.control.test"))))
	require.NoError(t, hs.Apply(scope.Clear(scope.ClearAll())))
	assert.False(t, hs.TopStyle().HasForeground)

	require.NoError(t, hs.Apply(scope.Restore()))
	st := hs.TopStyle()
	require.True(t, st.HasForeground)
	assert.Equal(t, theme.Color{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, st.Foreground)
}

func TestHighlightStatePopWithoutPushIsUnderflow(t *testing.T) {
	th, _ := theme.Parse([]byte(sampleTheme))
	hs := NewHighlightState(NewHighlighter(th))
	err := hs.Apply(scope.Pop(1))
	assert.ErrorIs(t, err, scope.ErrStackUnderflow)
}
