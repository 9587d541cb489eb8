package main

import "github.com/charmbracelet/lipgloss"

// Colors adapt to the dark-mode marker held by the renderer.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#006D77", Dark: "#00FFFF"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorError  = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5555"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#50FA7B"}
	colorUser   = lipgloss.AdaptiveColor{Light: "#7A4F00", Dark: "#FFD866"}
)

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
	ok      lipgloss.Style
	user    lipgloss.Style
	pending lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(colorAccent),
		muted: r.NewStyle().
			Foreground(colorMuted),
		err: r.NewStyle().
			Foreground(colorError).
			Bold(true),
		ok: r.NewStyle().
			Foreground(colorOK),
		user: r.NewStyle().
			Foreground(colorUser).
			Bold(true),
		pending: r.NewStyle().
			Foreground(colorMuted).
			Italic(true),
	}
}
