package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendVerificationCode_Success(t *testing.T) {
	var receivedBody txRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tx" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("unexpected auth: %s:%s", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&receivedBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data": true}`))
	}))
	defer srv.Close()

	client := New(Config{
		BaseURL:    srv.URL,
		Username:   "admin",
		Password:   "secret",
		TemplateID: 5,
	})

	err := client.SendVerificationCode(context.Background(), "alice@example.com", "123456", PurposeRegister)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedBody.SubscriberEmail != "alice@example.com" {
		t.Errorf("expected subscriber email %q, got %q", "alice@example.com", receivedBody.SubscriberEmail)
	}
	if receivedBody.TemplateID != 5 {
		t.Errorf("expected template ID 5, got %d", receivedBody.TemplateID)
	}
	if receivedBody.Data["code"] != "123456" || receivedBody.Data["purpose"] != PurposeRegister {
		t.Errorf("unexpected data %v", receivedBody.Data)
	}
}

func TestSendVerificationCode_ResetSubject(t *testing.T) {
	if subject(PurposeReset) == subject(PurposeRegister) {
		t.Error("expected distinct subjects per purpose")
	}
}

func TestSendVerificationCode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Username: "admin", Password: "secret", TemplateID: 5})

	err := client.SendVerificationCode(context.Background(), "alice@example.com", "123456", PurposeReset)
	if err == nil {
		t.Fatal("expected error for server error response")
	}
}

func TestSendVerificationCode_NoBaseURL(t *testing.T) {
	client := New(Config{})

	if err := client.SendVerificationCode(context.Background(), "alice@example.com", "123456", PurposeRegister); err != nil {
		t.Fatalf("expected no error when email is not configured, got %v", err)
	}
}

func TestSendVerificationCode_Allowlist(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Allowlist: ParseAllowlist(" @vss.dev, bob@example.com ")})
	ctx := context.Background()

	for _, addr := range []string{"alice@vss.dev", "Bob@Example.com", "eve@example.com"} {
		if err := client.SendVerificationCode(ctx, addr, "123456", PurposeRegister); err != nil {
			t.Fatalf("send to %s: %v", addr, err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 deliveries, got %d", calls.Load())
	}
}

func TestParseAllowlist(t *testing.T) {
	got := ParseAllowlist("a@b.co,, @c.dev ")
	if len(got) != 2 || got[0] != "a@b.co" || got[1] != "@c.dev" {
		t.Errorf("unexpected allowlist %v", got)
	}
	if ParseAllowlist("") != nil {
		t.Error("expected nil for empty input")
	}
}
