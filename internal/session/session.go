// Package session keeps the signed-in user's identity and access token in
// the client's persistent preferences.
package session

import (
	"errors"
	"fmt"

	"github.com/vsslab/vss/internal/prefs"
)

var ErrEmptyIdentity = errors.New("user id is required")

type Session struct {
	prefs prefs.Store
}

func New(p prefs.Store) *Session {
	return &Session{prefs: p}
}

// Identity reads the persisted user id on every call. An empty string means
// nobody is signed in.
func (s *Session) Identity() string {
	return prefs.Lookup(s.prefs, prefs.UserIDKey)
}

func (s *Session) SignedIn() bool {
	return s.Identity() != ""
}

// Token is the bearer token the server issued at login.
func (s *Session) Token() string {
	return prefs.Lookup(s.prefs, prefs.AccessTokenKey)
}

func (s *Session) SignIn(userID, token string) error {
	if userID == "" {
		return ErrEmptyIdentity
	}
	if err := s.prefs.Set(prefs.UserIDKey, userID); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}
	if token == "" {
		return s.prefs.Remove(prefs.AccessTokenKey)
	}
	if err := s.prefs.Set(prefs.AccessTokenKey, token); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	return nil
}

func (s *Session) SignOut() error {
	if err := s.prefs.Remove(prefs.UserIDKey); err != nil {
		return fmt.Errorf("remove user id: %w", err)
	}
	if err := s.prefs.Remove(prefs.AccessTokenKey); err != nil {
		return fmt.Errorf("remove access token: %w", err)
	}
	return nil
}
