// Package settings holds the user's inference parameters together with the
// persisted theme and language choices.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vsslab/vss/internal/prefs"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"

	DefaultLanguage = LanguageKorean
)

var (
	ErrInvalidTheme    = errors.New("theme must be light, dark, or auto")
	ErrInvalidLanguage = errors.New("language must be ko or en")
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return t, nil
	}
	return "", ErrInvalidTheme
}

func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case LanguageKorean, LanguageEnglish:
		return l, nil
	}
	return "", ErrInvalidLanguage
}

// Marker is the global dark-mode flag.
type Marker interface {
	SetDark(on bool)
}

// Preference is the system color-scheme preference.
type Preference interface {
	PrefersDark() bool
	OnChange(fn func(dark bool))
}

type Store struct {
	prefs  prefs.Store
	marker Marker
	system Preference

	mu       sync.Mutex
	params   Params
	theme    Theme
	language Language
}

// New restores theme and language from p and applies the theme right away.
// It registers the store's only system-preference listener.
func New(p prefs.Store, marker Marker, system Preference) *Store {
	s := &Store{
		prefs:  p,
		marker: marker,
		system: system,
		params: DefaultParams(),
	}

	s.theme = s.storedTheme()
	s.language = s.storedLanguage()
	s.marker.SetDark(s.resolveDark(s.theme))

	system.OnChange(s.systemChanged)
	return s
}

func (s *Store) storedTheme() Theme {
	if v := prefs.Lookup(s.prefs, prefs.ThemeKey); v != "" {
		if t, err := ParseTheme(v); err == nil {
			return t
		}
		slog.Warn("settings: ignoring stored theme", "value", v)
	}
	if s.system.PrefersDark() {
		return ThemeDark
	}
	return ThemeLight
}

func (s *Store) storedLanguage() Language {
	if v := prefs.Lookup(s.prefs, prefs.LanguageKey); v != "" {
		if l, err := ParseLanguage(v); err == nil {
			return l
		}
		slog.Warn("settings: ignoring stored language", "value", v)
	}
	return DefaultLanguage
}

func (s *Store) resolveDark(t Theme) bool {
	switch t {
	case ThemeDark:
		return true
	case ThemeAuto:
		return s.system.PrefersDark()
	default:
		return false
	}
}

func (s *Store) systemChanged(dark bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme != ThemeAuto {
		return
	}
	s.marker.SetDark(dark)
}

// SetTheme persists t and re-applies the dark-mode marker.
func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.Set(prefs.ThemeKey, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	s.theme = t
	s.marker.SetDark(s.resolveDark(t))
	return nil
}

func (s *Store) SetLanguage(l Language) error {
	if _, err := ParseLanguage(string(l)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.Set(prefs.LanguageKey, string(l)); err != nil {
		return fmt.Errorf("persist language: %w", err)
	}
	s.language = l
	return nil
}

func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Store) Language() Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Store) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Store) SetParams(p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

// Update applies fn to the current parameters under the store's lock.
func (s *Store) Update(fn func(p *Params)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.params)
}

// Reset restores the default parameters. Theme and language are kept.
func (s *Store) Reset() {
	s.SetParams(DefaultParams())
}
