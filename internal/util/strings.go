// Package util provides small formatting helpers shared by the CLI.
package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// Truncate shortens s to maxWidth visual columns, ending in "..." when it
// had to cut. Escape sequences and wide characters are measured by their
// rendered width.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward maxWidth
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// Summarize renders v on a single line no wider than maxWidth.
// Strings are quoted so that empty and whitespace values stay visible.
// A non-positive maxWidth disables truncation.
func Summarize(v any, maxWidth int) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "null"
	case string:
		s = fmt.Sprintf("%q", val)
	default:
		s = strings.Join(strings.Fields(fmt.Sprintf("%v", val)), " ")
	}
	if maxWidth <= 0 {
		return s
	}
	return Truncate(s, maxWidth)
}
