package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns speech text into terminal output.
type Renderer func(text string) (string, error)

// NewRenderer returns a glamour markdown renderer when stdout is a terminal,
// and a plain pass-through otherwise.
func NewRenderer() Renderer {
	if !IsTerminal(os.Stdout) {
		return PlainRenderer
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return PlainRenderer
	}

	return func(text string) (string, error) {
		out, err := r.Render(text)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n") + "\n", nil
	}
}

// PlainRenderer returns text unchanged with a trailing newline.
func PlainRenderer(text string) (string, error) {
	return strings.TrimRight(text, "\n") + "\n", nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
