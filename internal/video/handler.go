package video

import (
	"context"
	"fmt"
	"time"

	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/storage"
	"github.com/vsslab/vss/internal/via"
)

type ObjectStorage interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	GenerateDownloadURLWithDisposition(ctx context.Context, key string, filename string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (int64, string, error)
	DownloadToFile(ctx context.Context, key string, destPath string) error
	UploadFile(ctx context.Context, key string, filePath string, contentType string) error
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

// VIA is the subset of the VIA server client the handlers use.
type VIA interface {
	Model(ctx context.Context) (string, error)
	UploadFile(ctx context.Context, path string) (string, error)
	DeleteFile(ctx context.Context, id string) error
	Summarize(ctx context.Context, req via.SummarizeRequest) (string, error)
	Query(ctx context.Context, req via.QueryRequest) (string, error)
	RecommendChunkSize(ctx context.Context, videoLength float64) int
}

// Prompter prepares prompts for VIA and post-processes its answers.
type Prompter interface {
	SummarizePrompt(ctx context.Context, userPrompt string) string
	QueryPrompt(ctx context.Context, userPrompt string) string
	ExtractTimestamps(ctx context.Context, answer string) (string, error)
	Answer(ctx context.Context, question, summary string) (string, error)
}

type Handler struct {
	db             database.DBTX
	storage        ObjectStorage
	via            VIA
	prompts        Prompter
	baseURL        string
	maxUploadBytes int64

	probe func(ctx context.Context, path string) (float64, error)
	cut   func(ctx context.Context, inputPath, outputPath string, start, end float64) error
}

func NewHandler(db database.DBTX, s ObjectStorage, v VIA, p Prompter, baseURL string, maxUploadBytes int64) *Handler {
	h := &Handler{
		db:             db,
		storage:        s,
		via:            v,
		prompts:        p,
		baseURL:        baseURL,
		maxUploadBytes: maxUploadBytes,
	}
	h.SetFFmpeg("ffmpeg", "ffprobe")
	return h
}

// SetFFmpeg points the handler at the ffmpeg and ffprobe binaries.
func (h *Handler) SetFFmpeg(ffmpegPath, ffprobePath string) {
	h.probe = func(ctx context.Context, path string) (float64, error) {
		return probeDuration(ctx, ffprobePath, path)
	}
	h.cut = func(ctx context.Context, in, out string, start, end float64) error {
		return cutClip(ctx, ffmpegPath, in, out, start, end)
	}
}

func videoFileKey(userID, storedName string) string {
	return fmt.Sprintf("videos/%s/%s", userID, storedName)
}

func clipKey(userID, fileName string) string {
	return fmt.Sprintf("clips/%s/%s", userID, fileName)
}

func (h *Handler) videoFileURL(id int64) string {
	return fmt.Sprintf("%s/video-files/%d", h.baseURL, id)
}

func (h *Handler) clipURL(userID, fileName string) string {
	return fmt.Sprintf("%s/clips/%s/%s", h.baseURL, userID, fileName)
}
