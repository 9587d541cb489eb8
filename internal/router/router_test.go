package router

import (
	"errors"
	"testing"
)

type staticIdentity string

func (s staticIdentity) Identity() string { return string(s) }

func TestGuardScenarios(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		identity string
		want     Decision
	}{
		{"login signed out", PathLogin, "", Decision{Allow: true}},
		{"login signed in", PathLogin, "u1", Decision{Redirect: Landing}},
		{"register signed out", PathRegister, "", Decision{Allow: true}},
		{"register signed in", PathRegister, "u1", Decision{Allow: true}},
		{"reset signed out", PathResetPassword, "", Decision{Allow: true}},
		{"report signed out", PathReport, "", Decision{Redirect: PathLogin}},
		{"report signed in", PathReport, "u1", Decision{Allow: true}},
		{"help signed out", PathHelp, "", Decision{Redirect: PathLogin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Guard(tt.target, tt.identity); got != tt.want {
				t.Errorf("Guard(%q, %q) = %+v, want %+v", tt.target, tt.identity, got, tt.want)
			}
		})
	}
}

func TestLandingIsSearch(t *testing.T) {
	if Landing != "/search" {
		t.Errorf("unexpected landing page %q", Landing)
	}
}

func TestNavigatorStart(t *testing.T) {
	tests := []struct {
		entry    string
		identity string
		want     string
	}{
		{"/", "", PathLogin},
		{"/", "u1", Landing},
		{"/report", "", PathLogin},
		{"/report?page=2", "u1", PathReport},
		{"/summarize/", "u1", PathSummarize},
		{"/login", "u1", Landing},
		{"/reset-password", "", PathResetPassword},
	}

	for _, tt := range tests {
		t.Run(tt.entry+"/"+tt.identity, func(t *testing.T) {
			n := NewNavigator(staticIdentity(tt.identity))
			got, err := n.Start(tt.entry)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if got != tt.want || n.Current() != tt.want {
				t.Errorf("Start(%q) landed on %q (current %q), want %q", tt.entry, got, n.Current(), tt.want)
			}
		})
	}
}

func TestNavigatorUnknownPath(t *testing.T) {
	n := NewNavigator(staticIdentity("u1"))
	if _, err := n.Push(PathReport); err != nil {
		t.Fatal(err)
	}

	_, err := n.Push("/nowhere")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n.Current() != PathReport {
		t.Errorf("current page changed to %q", n.Current())
	}
}

func TestNavigatorUnknownPathSignedOutGoesToLogin(t *testing.T) {
	n := NewNavigator(staticIdentity(""))
	got, err := n.Push("/nowhere")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got != PathLogin {
		t.Errorf("expected login, got %q", got)
	}
}

type mutableIdentity struct{ id string }

func (m *mutableIdentity) Identity() string { return m.id }

func TestNavigatorReadsIdentityOnEveryNavigation(t *testing.T) {
	id := &mutableIdentity{}
	n := NewNavigator(id)

	var visited []string
	n.OnNavigate(func(p string) { visited = append(visited, p) })

	if got, _ := n.Push(PathSearch); got != PathLogin {
		t.Fatalf("expected login while signed out, got %q", got)
	}

	id.id = "u1"
	if got, _ := n.Push(PathSearch); got != PathSearch {
		t.Fatalf("expected search after sign in, got %q", got)
	}

	id.id = ""
	if got, _ := n.Push(PathSetting); got != PathLogin {
		t.Fatalf("expected login after sign out, got %q", got)
	}

	if len(visited) != 3 {
		t.Errorf("expected 3 navigation events, got %v", visited)
	}
}

func TestRoutesTable(t *testing.T) {
	for _, path := range []string{PathSummarize, PathSearch, PathReport, PathSetting, PathHelp, PathLogin, PathRegister, PathResetPassword} {
		if _, ok := Lookup(path); !ok {
			t.Errorf("missing route %s", path)
		}
	}
	if r, _ := Lookup(PathRoot); r.RedirectTo != PathLogin {
		t.Errorf("root should redirect to login, got %q", r.RedirectTo)
	}
	if len(Routes()) != 9 {
		t.Errorf("expected 9 routes, got %d", len(Routes()))
	}
}
