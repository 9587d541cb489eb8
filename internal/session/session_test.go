package session

import (
	"errors"
	"testing"

	"github.com/vsslab/vss/internal/prefs"
)

func TestSignInPersistsIdentityAndToken(t *testing.T) {
	p := prefs.NewMemory()
	s := New(p)

	if s.SignedIn() {
		t.Fatal("fresh session should be signed out")
	}

	if err := s.SignIn("u1", "tok"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := prefs.Lookup(p, prefs.UserIDKey); got != "u1" {
		t.Errorf("expected u1 under %s, got %q", prefs.UserIDKey, got)
	}

	// A new Session over the same storage sees the same identity.
	again := New(p)
	if again.Identity() != "u1" || again.Token() != "tok" {
		t.Errorf("expected persisted identity, got %q %q", again.Identity(), again.Token())
	}
}

func TestSignInRejectsEmptyIdentity(t *testing.T) {
	s := New(prefs.NewMemory())
	if err := s.SignIn("", "tok"); !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("expected ErrEmptyIdentity, got %v", err)
	}
}

func TestSignOutClearsEverything(t *testing.T) {
	s := New(prefs.NewMemory())
	_ = s.SignIn("u1", "tok")

	if err := s.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.SignedIn() || s.Token() != "" {
		t.Error("expected identity and token removed")
	}
}
