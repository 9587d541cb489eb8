// Package appearance owns the global dark-mode marker that every rendered
// style reads, and tracks the system color-scheme preference.
package appearance

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Root is the single dark-mode marker. Styles built from Renderer resolve
// adaptive colors against it.
type Root struct {
	mu       sync.Mutex
	dark     bool
	renderer *lipgloss.Renderer
}

func NewRoot(w io.Writer) *Root {
	return &Root{renderer: lipgloss.NewRenderer(w)}
}

func (r *Root) SetDark(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dark = on
	r.renderer.SetHasDarkBackground(on)
}

func (r *Root) Dark() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dark
}

func (r *Root) Renderer() *lipgloss.Renderer {
	return r.renderer
}

// System reports whether the environment prefers a dark color scheme and
// notifies listeners when that answer changes.
type System struct {
	detect func() bool

	mu        sync.Mutex
	dark      bool
	listeners []func(dark bool)
}

// NewSystem queries detect once immediately. A nil detect uses the
// terminal's background color.
func NewSystem(detect func() bool) *System {
	if detect == nil {
		detect = termenv.HasDarkBackground
	}
	return &System{detect: detect, dark: detect()}
}

// PrefersDark queries the environment on every call. It does not notify
// listeners; Refresh does.
func (s *System) PrefersDark() bool {
	return s.detect()
}

func (s *System) OnChange(fn func(dark bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh re-queries the preference and notifies listeners if it flipped.
func (s *System) Refresh() {
	dark := s.detect()

	s.mu.Lock()
	if dark == s.dark {
		s.mu.Unlock()
		return
	}
	s.dark = dark
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(dark)
	}
}
