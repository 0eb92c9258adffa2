package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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
	</array>
</dict>
</plist>
`

func TestRegistryLoadDirsAndLink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "grammars", "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "themes"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "grammars", "nested", "test.sublime-syntax"), []byte(sampleSyntax), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "themes", "Sample.tmTheme"), []byte(sampleTheme), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadSyntaxDir(filepath.Join(dir, "grammars")))
	require.NoError(t, r.LoadThemeDir(filepath.Join(dir, "themes")))

	th, ok := r.Theme("Sample")
	require.True(t, ok)
	assert.True(t, th.Default.HasForeground)
	assert.Contains(t, r.ThemeNames(), "Sample")

	set, err := r.Builder().Link(context.Background())
	require.NoError(t, err)
	def := set.Definition("source.test")
	require.NotNil(t, def)
	assert.Equal(t, "Test", def.Name)
}

func TestRegistryLoadDirMissingIsNotError(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.LoadSyntaxDir(filepath.Join(t.TempDir(), "does-not-exist")))
}
