package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the colors and base styles of the terminal views.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
}

// DefaultTheme returns the default theme bound to r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#626262"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E8E8F0", Dark: "#44475A"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#A0A0A0"},
		Border:    lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5555"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().Background(t.Highlight).Bold(true)
	return t
}
