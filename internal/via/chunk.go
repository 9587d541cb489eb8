package via

import (
	"context"
	"log/slog"
	"math"
)

// ChunkSizes are the chunk durations, in seconds, VIA is asked to use.
var ChunkSizes = []int{0, 5, 10, 20, 30, 60, 120, 300, 600, 1200, 1800}

// ClosestChunkSize snaps x to the nearest entry of ChunkSizes. Ties go to
// the smaller size.
func ClosestChunkSize(x float64) int {
	best := ChunkSizes[0]
	for _, v := range ChunkSizes[1:] {
		if math.Abs(float64(v)-x) < math.Abs(float64(best)-x) {
			best = v
		}
	}
	return best
}

// RecommendChunkSize asks VIA for a chunk size and snaps it to ChunkSizes.
// When VIA fails or suggests 0 the whole video becomes one chunk.
func (c *Client) RecommendChunkSize(ctx context.Context, videoLength float64) int {
	size, err := c.RecommendedConfig(ctx, videoLength)
	if err != nil {
		slog.Warn("via: recommended config failed", "video_length", videoLength, "error", err)
	}
	if err != nil || size == 0 {
		size = videoLength
	}
	return ClosestChunkSize(size)
}
