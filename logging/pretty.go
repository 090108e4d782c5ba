package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Console prints short human-facing confirmations for interactive
// commands such as "settings --write" and "config validate". Hook results
// never go through it.
type Console struct {
	w       io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	label   lipgloss.Style
	path    lipgloss.Style
}

// NewConsole returns a Console writing to w, or to stderr when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{
		w:       w,
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#4E7C5A", Dark: "#98BB6C"}),
		warning: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#A68A64", Dark: "#FF9E3B"}),
		label:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#727169"}),
		path:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#5B8BBE", Dark: "#7E9CD8"}),
	}
}

// Success prints message behind a check mark.
func (c *Console) Success(message string) {
	fmt.Fprintf(c.w, "%s %s\n", c.success.Render("✓"), message)
}

// Warn prints message behind a warning sign.
func (c *Console) Warn(message string) {
	fmt.Fprintf(c.w, "%s %s\n", c.warning.Render("!"), c.warning.Render(message))
}

// Path prints an indented "label: path" line.
func (c *Console) Path(label, path string) {
	fmt.Fprintf(c.w, "  %s %s\n", c.label.Render(label+":"), c.path.Render(path))
}
