package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Upload spools at most this much of a multipart body in memory.
const multipartMemory = 32 << 20

var allowedExtensions = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
}

const allowedExtensionList = ".mp4, .avi, .mov, .mkv, .webm, .flv"

var errUnsupportedFormat = errors.New("unsupported file format, allowed: " + allowedExtensionList)

func deleteWithRetry(ctx context.Context, storage ObjectStorage, key string, maxAttempts int) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = storage.DeleteObject(ctx, key)
		if lastErr == nil {
			return nil
		}
		slog.Error("storage: delete attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "key", key, "error", lastErr)
	}
	return fmt.Errorf("all %d delete attempts failed for %s: %w", maxAttempts, key, lastErr)
}

// splitName returns the base name without extension and the lower-cased
// extension of a client-supplied file name.
func splitName(name string) (stem, ext string) {
	name = filepath.Base(name)
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), strings.ToLower(ext)
}

// storedName appends a millisecond stamp so repeated names never collide in
// storage.
func storedName(fileName string, now time.Time) string {
	stem, ext := splitName(fileName)
	return fmt.Sprintf("%s_%d%s", stem, now.UnixMilli(), ext)
}

// spoolUpload copies a multipart file into dir under name.
func spoolUpload(file multipart.File, dir, name string) (string, int64, error) {
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create spool file: %w", err)
	}
	n, err := io.Copy(out, file)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("spool upload: %w", err)
	}
	return path, n, nil
}

// formFile returns the "file" part when present. A missing part is not an
// error.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	return file, header, err
}

func formInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name))); err == nil {
		return v
	}
	return def
}

func formFloat(r *http.Request, name string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64); err == nil {
		return v
	}
	return def
}

func formBool(r *http.Request, name string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(r.FormValue(name))); err == nil {
		return v
	}
	return def
}

func formString(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.FormValue(name)); v != "" {
		return v
	}
	return def
}
