package video

import (
	"context"
	"fmt"
	"os/exec"
)

// cutClip re-encodes [start, end] of input into an H.264 MP4 without audio.
func cutClip(ctx context.Context, ffmpeg, inputPath, outputPath string, start, end float64) error {
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-i", inputPath,
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-an",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut: %w: %s", err, string(output))
	}
	return nil
}
