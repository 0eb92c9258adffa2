// Package main implements the highlight CLI: render a source file (or
// stdin) to a terminal with 24-bit ANSI escapes, using a linked SyntaxSet
// and Theme loaded from disk - the spiritual successor of colorcat, now
// backed by Sublime .sublime-syntax grammars and TextMate .tmTheme themes
// instead of the original JSON/YAML TextMate hybrid.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/friedelschoen/highlight/easy"
	"github.com/friedelschoen/highlight/loader"
	"github.com/friedelschoen/highlight/syntax"
	"github.com/friedelschoen/highlight/theme"
)

const (
	grammarDirName = "highlight/grammars"
	themeDirName   = "highlight/themes"
)

var (
	syntaxName  string
	themeName   string
	transparent bool
	listOnly    bool
	grammarsDir string
	themesDir   string
	verbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "highlight [file]",
		Short: "Render source text with syntax-highlighted ANSI escapes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&syntaxName, "syntax", "", "grammar scope or file extension (default: guessed from the file name)")
	root.Flags().StringVar(&themeName, "theme", "default", "theme name, without the .tmTheme extension")
	root.Flags().BoolVar(&transparent, "transparent", false, "don't paint the default foreground/background colors")
	root.Flags().BoolVar(&listOnly, "list", false, "list available grammars and themes, then exit")
	root.Flags().StringVar(&grammarsDir, "grammars-dir", "", "extra directory to search for .sublime-syntax files")
	root.Flags().StringVar(&themesDir, "themes-dir", "", "extra directory to search for .tmTheme files")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log linking diagnostics to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func searchDirs(userSuffix, override string) []string {
	var dirs []string
	dirs = append(dirs, filepath.Join("/usr/share", userSuffix))
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", userSuffix))
	}
	if override != "" {
		dirs = append(dirs, override)
	}
	return dirs
}

func run(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	}

	reg := loader.NewRegistry(syntax.WithLogger(logger))
	for _, dir := range searchDirs(grammarDirName, grammarsDir) {
		if err := reg.LoadSyntaxDir(dir); err != nil {
			return fmt.Errorf("loading grammars from %s: %w", dir, err)
		}
	}
	for _, dir := range searchDirs(themeDirName, themesDir) {
		if err := reg.LoadThemeDir(dir); err != nil {
			return fmt.Errorf("loading themes from %s: %w", dir, err)
		}
	}

	set, err := reg.Builder().Link(context.Background())
	if err != nil {
		return fmt.Errorf("linking grammars: %w", err)
	}

	if listOnly {
		printList(set, reg)
		return nil
	}

	th, ok := reg.Theme(themeName)
	if !ok {
		return fmt.Errorf("theme %q not found", themeName)
	}

	var (
		src  io.Reader = os.Stdin
		name string
	)
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		src = f
		name = args[0]
	}
	if syntaxName == "" && name != "" {
		syntaxName = strings.TrimPrefix(filepath.Ext(name), ".")
	}

	def := resolveSyntax(set, syntaxName)
	if def == nil {
		return fmt.Errorf("no grammar found for %q", syntaxName)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	lh := easy.NewLineHighlighter(set, def, th, syntax.Options{IgnoreErrors: true, Logger: logger})
	return renderANSI(os.Stdout, string(data), lh)
}

func resolveSyntax(set *syntax.SyntaxSet, name string) *syntax.SyntaxDefinition {
	if name == "" {
		return nil
	}
	if def := set.Definition(name); def != nil {
		return def
	}
	if defs := set.FindSyntaxByExtension(name); len(defs) > 0 {
		return defs[0]
	}
	return nil
}

func printList(set *syntax.SyntaxSet, reg *loader.Registry) {
	fmt.Println("Grammars:")
	defs := set.Definitions()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	for _, d := range defs {
		fmt.Printf("  %-24s extensions: %s\n", d.Name, strings.Join(d.FileExtensions, ", "))
	}
	fmt.Println("Themes:")
	names := reg.ThemeNames()
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}

// renderANSI walks src line by line through lh and writes out each span
// wrapped in a fresh SGR escape sequence, the same "reset, then re-apply
// every attribute" strategy colorcat used, generalized from a single flat
// token stream to theme.Style spans.
func renderANSI(w io.Writer, src string, lh *easy.LineHighlighter) error {
	lines := strings.SplitAfter(src, "\n")
	for _, line := range lines {
		spans, err := lh.HighlightLine(line)
		if err != nil {
			return err
		}
		for _, sp := range spans {
			writeSGR(w, sp.Style)
			io.WriteString(w, sp.Text)
		}
	}
	fmt.Fprint(w, "\033[0m")
	return nil
}

func writeSGR(w io.Writer, st theme.Style) {
	var csi bytes.Buffer
	csi.WriteString("\033[0")
	if st.HasFontStyle {
		if st.FontStyle.Has(theme.Bold) {
			csi.WriteString(";1")
		}
		if st.FontStyle.Has(theme.Italic) {
			csi.WriteString(";3")
		}
		if st.FontStyle.Has(theme.Underline) {
			csi.WriteString(";4")
		}
		if st.FontStyle.Has(theme.Strikethrough) {
			csi.WriteString(";9")
		}
	}
	if !transparent {
		if st.HasForeground {
			fmt.Fprintf(&csi, ";38;2;%d;%d;%d", st.Foreground.R, st.Foreground.G, st.Foreground.B)
		}
		if st.HasBackground {
			fmt.Fprintf(&csi, ";48;2;%d;%d;%d", st.Background.R, st.Background.G, st.Background.B)
		}
	}
	csi.WriteByte('m')
	csi.WriteTo(w)
}
