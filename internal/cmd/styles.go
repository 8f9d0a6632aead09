package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
)

// palette renders CLI output. The plain palette leaves text untouched.
type palette struct {
	color  bool
	title  lipgloss.Style
	name   lipgloss.Style
	kind   lipgloss.Style
	detail lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
}

var plainPalette = palette{
	title:  lipgloss.NewStyle(),
	name:   lipgloss.NewStyle(),
	kind:   lipgloss.NewStyle(),
	detail: lipgloss.NewStyle(),
	ok:     lipgloss.NewStyle(),
	err:    lipgloss.NewStyle(),
}

var colorPalette = palette{
	color:  true,
	title:  lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
	name:   lipgloss.NewStyle().Bold(true),
	kind:   lipgloss.NewStyle().Foreground(mutedColor).Italic(true),
	detail: lipgloss.NewStyle().Foreground(mutedColor),
	ok:     lipgloss.NewStyle().Foreground(successColor),
	err:    lipgloss.NewStyle().Foreground(errorColor).Bold(true),
}

// paletteFor styles output only when w is an interactive terminal.
func paletteFor(w io.Writer) palette {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return colorPalette
	}
	return plainPalette
}

// detailWidth is how many columns a symbol's detail may take on w, leaving
// room for the name and kind. Zero means unlimited.
func detailWidth(w io.Writer) int {
	const reserved = 32
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= reserved*2 {
		return reserved
	}
	return width - reserved
}
