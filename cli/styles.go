package cli

import "github.com/charmbracelet/lipgloss"

// Palette holds the adaptive colors used by help and command output.
type Palette struct {
	Green  lipgloss.AdaptiveColor
	Yellow lipgloss.AdaptiveColor
	Red    lipgloss.AdaptiveColor
	Orange lipgloss.AdaptiveColor
	Cyan   lipgloss.AdaptiveColor
	Blue   lipgloss.AdaptiveColor
	Violet lipgloss.AdaptiveColor
	Muted  lipgloss.AdaptiveColor
}

// Styles is the small set of styles shared by the grove-hooks commands.
type Styles struct {
	Colors  Palette
	Muted   lipgloss.Style
	Italic  lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
}

// Kanagawa light/dark pairs.
var palette = Palette{
	Green:  lipgloss.AdaptiveColor{Light: "#4E7C5A", Dark: "#98BB6C"},
	Yellow: lipgloss.AdaptiveColor{Light: "#A68A64", Dark: "#FF9E3B"},
	Red:    lipgloss.AdaptiveColor{Light: "#C34043", Dark: "#FF5D62"},
	Orange: lipgloss.AdaptiveColor{Light: "#CC6B4E", Dark: "#FFA066"},
	Cyan:   lipgloss.AdaptiveColor{Light: "#5B8BBE", Dark: "#7E9CD8"},
	Blue:   lipgloss.AdaptiveColor{Light: "#4F7CAC", Dark: "#7FB4CA"},
	Violet: lipgloss.AdaptiveColor{Light: "#674D7A", Dark: "#957FB8"},
	Muted:  lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#727169"},
}

// DefaultStyles is used by every command.
var DefaultStyles = &Styles{
	Colors:  palette,
	Muted:   lipgloss.NewStyle().Foreground(palette.Muted),
	Italic:  lipgloss.NewStyle().Italic(true),
	Accent:  lipgloss.NewStyle().Foreground(palette.Cyan),
	Success: lipgloss.NewStyle().Foreground(palette.Green),
	Warning: lipgloss.NewStyle().Foreground(palette.Yellow),
	Error:   lipgloss.NewStyle().Bold(true).Foreground(palette.Red),
	Info:    lipgloss.NewStyle().Foreground(palette.Blue),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(palette.Orange),
}
