package storage

import (
	"context"
	"testing"
	"time"
)

func TestNewStorageRequiresConfig(t *testing.T) {
	ctx := context.Background()

	// Should not panic with valid config (will fail to connect, but that's OK)
	_, err := New(ctx, Config{
		Endpoint:  "http://localhost:9000",
		Bucket:    "test",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("expected no error creating storage client, got: %v", err)
	}
}

func TestGenerateDownloadURLUsesPublicEndpoint(t *testing.T) {
	s, err := New(context.Background(), Config{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "https://files.example.com",
		Bucket:         "vss",
		AccessKey:      "test",
		SecretKey:      "test",
	})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	url, err := s.GenerateDownloadURL(context.Background(), "clips/alice/clip_a_1_1.mp4", time.Hour)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	want := "https://files.example.com/vss/clips/alice/clip_a_1_1.mp4?"
	if len(url) < len(want) || url[:len(want)] != want {
		t.Errorf("expected URL to start with %q, got %q", want, url)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"parking.mp4", "parking.mp4"},
		{`a"b.mp4`, "a_b.mp4"},
		{`a\b.mp4`, "a_b.mp4"},
		{"a\nb.mp4", "a_b.mp4"},
		{"주차장.mp4", "주차장.mp4"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
