package video

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const clipPrefix = "clips/"

// PurgeExpiredClips deletes generated clips older than maxAge.
func PurgeExpiredClips(ctx context.Context, storage ObjectStorage, maxAge time.Duration) {
	objects, err := storage.List(ctx, clipPrefix)
	if err != nil {
		slog.Error("cleanup: failed to list clips", "error", err)
		return
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, clipPrefix) || !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := deleteWithRetry(ctx, storage, obj.Key, 3); err != nil {
			slog.Error("cleanup: failed to delete clip", "key", obj.Key, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("cleanup: removed expired clips", "count", removed)
	}
}

func StartClipCleanupLoop(ctx context.Context, storage ObjectStorage, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("cleanup: shutting down")
				return
			case <-ticker.C:
				PurgeExpiredClips(ctx, storage, maxAge)
			}
		}
	}()
}
