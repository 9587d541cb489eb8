package validate

import (
	"strings"
	"testing"
)

func TestPassword(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "abc123!@", ""},
		{"unicode symbol counts", "abcd1234é", ""},
		{"too short", "a1!", "password must be at least 8 characters"},
		{"no digit", "abcdefg!", "password must include a letter, a number, and a symbol"},
		{"no letter", "1234567!", "password must include a letter, a number, and a symbol"},
		{"no symbol", "abcd1234", "password must include a letter, a number, and a symbol"},
		{"too long", "a1!" + strings.Repeat("x", MaxPasswordLength), "password must be 72 characters or fewer"},
	}
	for _, tt := range tests {
		if got := Password(tt.input); got != tt.want {
			t.Errorf("Password(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewPassword(t *testing.T) {
	if got := NewPassword("abcdefgh"); got != "" {
		t.Errorf("expected plain 8-char password to pass, got %q", got)
	}
	if got := NewPassword("short"); got == "" {
		t.Error("expected short password to fail")
	}
}

func TestUserID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "u1", ""},
		{"empty", "", "user id is required"},
		{"over limit", strings.Repeat("u", MaxUserIDLength+1), "user id must be 50 characters or fewer"},
	}
	for _, tt := range tests {
		if got := UserID(tt.input); got != tt.want {
			t.Errorf("UserID(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice@example.com", ""},
		{"", "email is required"},
		{"alice@example", "invalid email address"},
		{"alice example@x.com", "invalid email address"},
		{"@example.com", "invalid email address"},
	}
	for _, tt := range tests {
		if got := Email(tt.input); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestVerificationCode(t *testing.T) {
	for _, ok := range []string{"000000", "123456"} {
		if got := VerificationCode(ok); got != "" {
			t.Errorf("VerificationCode(%q) = %q", ok, got)
		}
	}
	for _, bad := range []string{"", "12345", "1234567", "12a456"} {
		if got := VerificationCode(bad); got == "" {
			t.Errorf("VerificationCode(%q) should fail", bad)
		}
	}
}

func TestReportFields(t *testing.T) {
	if got := ReportTitle(""); got != "report title is required" {
		t.Errorf("ReportTitle empty = %q", got)
	}
	if got := ReportTitle(string(make([]byte, MaxReportTitleLength))); got != "" {
		t.Errorf("ReportTitle at limit = %q", got)
	}
	if got := ReportDescription(string(make([]byte, MaxReportDescriptionLength+1))); got != "report description must be 2000 characters or fewer" {
		t.Errorf("ReportDescription over limit = %q", got)
	}
}

func TestQuestion(t *testing.T) {
	if got := Question(""); got != "question is required" {
		t.Errorf("Question empty = %q", got)
	}
	if got := Question("what happened at 1:30?"); got != "" {
		t.Errorf("Question valid = %q", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Title(string(make([]byte, MaxTitleLength+1))); got != "title must be 500 characters or fewer" {
		t.Errorf("Title over limit = %q", got)
	}
}

func TestFieldLimits(t *testing.T) {
	limits := FieldLimits()
	if limits["password"] != MaxPasswordLength || limits["reportTitle"] != MaxReportTitleLength {
		t.Errorf("unexpected limits: %v", limits)
	}
}
