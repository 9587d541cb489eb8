// Package prefs is the client's browser-local key-value storage: a handful
// of string values kept under fixed keys across restarts.
package prefs

import (
	"errors"
	"sync"
)

// Fixed keys for persisted client state.
const (
	UserIDKey      = "vss_user_id"
	AccessTokenKey = "vss_access_token"
	ThemeKey       = "vss_theme"
	LanguageKey    = "vss_language"
)

var ErrClosed = errors.New("preferences store closed")

// Store reads and writes single string values. A missing key is reported
// with ok == false and a nil error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Lookup returns the stored value or "" when the key is absent or the
// store fails to answer.
func Lookup(s Store, key string) string {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return ""
	}
	return v
}
