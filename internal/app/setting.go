package app

import (
	"sync"

	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/settings"
)

// PromptItem is one collapsible prompt editor on the settings page.
type PromptItem struct {
	Label string
	Value string
	Open  bool
}

type promptBinding struct {
	label string
	get   func(settings.Params) string
	set   func(*settings.Params, string)
}

// SettingPage exposes the prompt editors bound to the settings store.
type SettingPage struct {
	app      *App
	bindings []promptBinding

	mu   sync.Mutex
	open []bool
}

func newSettingPage(a *App) *SettingPage {
	bindings := []promptBinding{
		{
			label: languages.MsgCaptionPromptLabel,
			get:   func(p settings.Params) string { return p.CaptionPrompt },
			set:   func(p *settings.Params, v string) { p.CaptionPrompt = v },
		},
		{
			label: languages.MsgAggregatePromptLabel,
			get:   func(p settings.Params) string { return p.AggregationPrompt },
			set:   func(p *settings.Params, v string) { p.AggregationPrompt = v },
		},
	}
	return &SettingPage{app: a, bindings: bindings, open: make([]bool, len(bindings))}
}

// Items returns the prompt editors with localized labels and the current
// values from the settings store.
func (p *SettingPage) Items() []PromptItem {
	params := p.app.Settings.Params()
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]PromptItem, len(p.bindings))
	for i, b := range p.bindings {
		items[i] = PromptItem{
			Label: p.app.T(b.label),
			Value: b.get(params),
			Open:  p.open[i],
		}
	}
	return items
}

func (p *SettingPage) Toggle(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.open) {
		return false
	}
	p.open[i] = !p.open[i]
	return true
}

// SetPrompt writes value through to the bound settings field.
func (p *SettingPage) SetPrompt(i int, value string) bool {
	if i < 0 || i >= len(p.bindings) {
		return false
	}
	b := p.bindings[i]
	p.app.Settings.Update(func(params *settings.Params) { b.set(params, value) })
	return true
}
