package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeDuration reads the container duration of a local file in seconds.
func probeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", durationStr, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid duration %v", duration)
	}
	return duration, nil
}
