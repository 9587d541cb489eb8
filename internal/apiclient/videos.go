package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsslab/vss/internal/settings"
)

type Video struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	FileName   string  `json:"file_name"`
	FileURL    string  `json:"file_url"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration"`
	VIAVideoID string  `json:"video_id"`
	CreatedAt  string  `json:"created_at"`
}

type UploadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Video   Video  `json:"video"`
}

// SummarizeRequest carries the user's prompt and every generation
// parameter. Either FilePath or VideoID must be set.
type SummarizeRequest struct {
	FilePath string
	VideoID  string
	Prompt   string
	Params   settings.Params
}

type SummarizeResult struct {
	Summary string `json:"summary"`
	VideoID string `json:"video_id"`
}

type AskRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	VideoID  string `json:"video_id,omitempty"`
}

type AskResult struct {
	Answer string `json:"answer"`
}

type GenerateClipsRequest struct {
	Prompt   string  `json:"prompt"`
	VideoIDs []int64 `json:"video_ids"`
}

type Clip struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url,omitempty"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	SearchQuery string   `json:"search_query"`
	VIAResponse string   `json:"via_response,omitempty"`
}

type ClipGroup struct {
	Video string `json:"video"`
	Clips []Clip `json:"clips"`
}

type ClipsResult struct {
	Clips          []ClipGroup `json:"clips"`
	ClipsExtracted bool        `json:"clips_extracted"`
}

type Summary struct {
	VideoID     string `json:"video_id"`
	SummaryText string `json:"summary_text"`
	Prompt      string `json:"prompt,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type DeleteResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	DeletedCount int    `json:"deleted_count"`
	FailedCount  int    `json:"failed_count"`
}

func (c *Client) UploadVideo(ctx context.Context, path string) (*UploadResult, error) {
	var out UploadResult
	err := c.doMultipart(ctx, "/upload-video", path, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVideos(ctx context.Context, userID string) ([]Video, error) {
	var out struct {
		Videos []Video `json:"videos"`
	}
	path := "/videos?user_id=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id int64) (*Ack, error) {
	return c.ack(ctx, http.MethodDelete, "/videos/"+strconv.FormatInt(id, 10), nil)
}

// Summarize uploads the file (if any) and waits for the full summary.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error) {
	var out SummarizeResult
	if err := c.doMultipart(ctx, "/vss-summarize", req.FilePath, summarizeFields(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func summarizeFields(req SummarizeRequest) map[string]string {
	p := req.Params
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	i := strconv.Itoa

	fields := map[string]string{
		"prompt":               req.Prompt,
		"csprompt":             p.CaptionPrompt,
		"saprompt":             p.AggregationPrompt,
		"chunk_duration":       i(p.Chunk),
		"num_frames_per_chunk": i(p.NumFramesPerChunk),
		"frame_width":          i(p.FrameWidth),
		"frame_height":         i(p.FrameHeight),
		"top_k":                i(p.TopK),
		"top_p":                f(p.TopP),
		"temperature":          f(p.Temperature),
		"max_tokens":           i(p.MaxTokens),
		"seed":                 i(p.Seed),
		"batch_size":           i(p.Batch),
		"rag_batch_size":       i(p.RAGBatch),
		"rag_top_k":            i(p.RAGTopK),
		"summary_top_p":        f(p.Summarize.TopP),
		"summary_temperature":  f(p.Summarize.Temperature),
		"summary_max_tokens":   i(p.Summarize.MaxTokens),
		"chat_top_p":           f(p.Chat.TopP),
		"chat_temperature":     f(p.Chat.Temperature),
		"chat_max_tokens":      i(p.Chat.MaxTokens),
		"alert_top_p":          f(p.Notification.TopP),
		"alert_temperature":    f(p.Notification.Temperature),
		"alert_max_tokens":     i(p.Notification.MaxTokens),
		"enable_audio":         strconv.FormatBool(p.EnableAudio),
	}
	if req.VideoID != "" {
		fields["video_id"] = req.VideoID
	}
	return fields
}

func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	var out AskResult
	if err := c.doJSON(ctx, http.MethodPost, "/vss-query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateClips(ctx context.Context, req GenerateClipsRequest) (*ClipsResult, error) {
	var out ClipsResult
	if err := c.doJSON(ctx, http.MethodPost, "/generate-clips", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveSummary(ctx context.Context, videoID, content, prompt string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/save-summary", map[string]string{
		"video_id": videoID,
		"content":  content,
		"prompt":   prompt,
	})
}

func (c *Client) GetSummary(ctx context.Context, videoID string) (*Summary, error) {
	var out Summary
	if err := c.doJSON(ctx, http.MethodGet, "/summaries/"+url.PathEscape(videoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSummaries(ctx context.Context) ([]Summary, error) {
	var out struct {
		Summaries []Summary `json:"summaries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/summaries", nil, &out); err != nil {
		return nil, err
	}
	return out.Summaries, nil
}

func (c *Client) DeleteSummaries(ctx context.Context, videoIDs []string) (*DeleteResult, error) {
	var out DeleteResult
	err := c.doJSON(ctx, http.MethodDelete, "/summaries", map[string][]string{"video_ids": videoIDs}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecommendedChunkSize asks the backend for a chunk duration suited to a
// video of the given length in seconds.
func (c *Client) RecommendedChunkSize(ctx context.Context, videoLength float64) (int, error) {
	var out struct {
		RecommendedChunkSize int `json:"recommended_chunk_size"`
	}
	path := "/get-recommended-chunk-size?video_length=" + strconv.FormatFloat(videoLength, 'f', -1, 64)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.RecommendedChunkSize, nil
}

func (c *Client) RemoveMedia(ctx context.Context, mediaIDs []string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/remove-media", map[string][]string{"media_ids": mediaIDs})
}

func (c *Client) DeleteClips(ctx context.Context, clipURLs []string) (*DeleteResult, error) {
	var out DeleteResult
	err := c.doJSON(ctx, http.MethodPost, "/delete-clips", map[string][]string{"clip_urls": clipURLs}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// doMultipart streams the file at path (if non-empty) as the "file" part
// followed by fields.
func (c *Client) doMultipart(ctx context.Context, endpoint, path string, fields map[string]string, out any) error {
	var file *os.File
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		file = f
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		if file != nil {
			defer func() { _ = file.Close() }()
		}
		pw.CloseWithError(writeParts(mw, file, fields))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

func writeParts(mw *multipart.Writer, file *os.File, fields map[string]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", filepath.Base(file.Name()))
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return fmt.Errorf("copy file: %w", err)
		}
	}
	return mw.Close()
}
