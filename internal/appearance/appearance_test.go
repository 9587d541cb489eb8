package appearance

import (
	"io"
	"testing"
)

func TestRootSetDarkUpdatesRenderer(t *testing.T) {
	root := NewRoot(io.Discard)

	root.SetDark(true)
	if !root.Dark() || !root.Renderer().HasDarkBackground() {
		t.Fatal("expected dark marker on")
	}

	root.SetDark(false)
	if root.Dark() || root.Renderer().HasDarkBackground() {
		t.Fatal("expected dark marker off")
	}
}

func TestSystemRefreshNotifiesOnlyOnChange(t *testing.T) {
	dark := false
	sys := NewSystem(func() bool { return dark })

	var calls []bool
	sys.OnChange(func(d bool) { calls = append(calls, d) })

	sys.Refresh()
	if len(calls) != 0 {
		t.Fatalf("expected no notification without change, got %v", calls)
	}

	dark = true
	sys.Refresh()
	sys.Refresh()
	if len(calls) != 1 || !calls[0] {
		t.Fatalf("expected one dark notification, got %v", calls)
	}
	if !sys.PrefersDark() {
		t.Error("expected PrefersDark after refresh")
	}
}

func TestNewSystemReadsInitialPreference(t *testing.T) {
	sys := NewSystem(func() bool { return true })
	if !sys.PrefersDark() {
		t.Error("expected initial dark preference")
	}
}

func TestPrefersDarkReadsCurrentPreference(t *testing.T) {
	dark := false
	sys := NewSystem(func() bool { return dark })

	var calls []bool
	sys.OnChange(func(d bool) { calls = append(calls, d) })

	dark = true
	if !sys.PrefersDark() {
		t.Fatal("expected PrefersDark to see the flipped preference without a refresh")
	}
	if len(calls) != 0 {
		t.Errorf("PrefersDark must not notify listeners, got %v", calls)
	}

	sys.Refresh()
	if len(calls) != 1 || !calls[0] {
		t.Errorf("expected refresh to report the flip once, got %v", calls)
	}
}
