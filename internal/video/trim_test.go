package video

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestCutClip_MissingBinary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clip.mp4")
	err := cutClip(context.Background(), "/nonexistent/ffmpeg", "in.mp4", out, 1, 2)
	if err == nil {
		t.Fatal("expected error for missing ffmpeg binary")
	}
	if !strings.Contains(err.Error(), "ffmpeg cut") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
