package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return Plain
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Plain returns the markdown untouched.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// RendererFor picks glamour when w is a terminal and plain markdown otherwise,
// so piped output stays free of escape sequences.
func RendererFor(w io.Writer) func(string) (string, error) {
	if IsTerminal(w) {
		return NewRenderer()
	}
	return Plain
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
