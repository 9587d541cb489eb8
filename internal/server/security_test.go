package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithSecurityHeaders(baseURL string) *httptest.ResponseRecorder {
	handler := securityHeaders(SecurityConfig{BaseURL: baseURL})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler(inner).ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders_CSPDeniesEverything(t *testing.T) {
	rec := serveWithSecurityHeaders("https://api.test")

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP should default to 'none', got: %s", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("CSP should forbid framing, got: %s", csp)
	}
	if strings.Contains(csp, "'unsafe-inline'") {
		t.Errorf("CSP should not contain 'unsafe-inline', got: %s", csp)
	}
}

func TestSecurityHeaders_StaticHeaders(t *testing.T) {
	rec := serveWithSecurityHeaders("https://api.test")

	expected := map[string]string{
		"Referrer-Policy":        "no-referrer",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestSecurityHeaders_HSTSOnHTTPS(t *testing.T) {
	rec := serveWithSecurityHeaders("https://api.test")

	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header for HTTPS base URL")
	}
}

func TestSecurityHeaders_NoHSTSOnHTTP(t *testing.T) {
	rec := serveWithSecurityHeaders("http://localhost:8001")

	if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("expected no HSTS for HTTP base URL, got: %s", hsts)
	}
}

func TestSecurityHeaders_NoHSTSWithoutBaseURL(t *testing.T) {
	rec := serveWithSecurityHeaders("")

	if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("expected no HSTS without base URL, got: %s", hsts)
	}
}
