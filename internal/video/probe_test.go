package video

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestProbeDuration_MissingBinary(t *testing.T) {
	if _, err := probeDuration(context.Background(), "/nonexistent/ffprobe", "video.mp4"); err == nil {
		t.Fatal("expected error for missing ffprobe binary")
	}
}

func TestProbeDuration_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// Whether or not ffprobe is installed, an empty file has no duration.
	if _, err := probeDuration(context.Background(), "ffprobe", path); err == nil {
		t.Fatal("expected error for empty file")
	}
}
