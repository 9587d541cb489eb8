// Package via talks to the VIA video insight server: file upload,
// summarization, question answering and chunking recommendations.
package via

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	modelTimeout = 10 * time.Second

	uploadTimeoutMin   = 60 * time.Second
	uploadTimeoutMax   = 600 * time.Second
	uploadTimeoutPerMB = 10 * time.Second

	targetResponseTime   = 120
	usecaseEventDuration = 10
)

// StatusError is returned when VIA answers with a non-200 status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("VIA returned status %d: %s", e.Status, e.Body)
}

// StreamError reports a media pipeline failure inside VIA, usually a
// corrupt file or an unsupported codec.
type StreamError struct {
	Detail string
}

func (e *StreamError) Error() string {
	return "video stream could not be decoded (corrupt file, unsupported codec or incomplete upload): " + e.Detail
}

var ErrEmptyResponse = errors.New("VIA returned no choices")

func isStreamFailure(body string) bool {
	for _, marker := range []string{"gst-stream-error", "qtdemux", "not-negotiated"} {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

type Client struct {
	baseURL       string
	modelOverride string
	httpClient    *http.Client

	mu    sync.Mutex
	model string
}

// New returns a client for the VIA server at baseURL. A non-empty model
// replaces the one the server advertises.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		modelOverride: model,
		httpClient:    &http.Client{},
	}
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Model returns the first model VIA reports. The answer is cached after the
// first success.
func (c *Client) Model(ctx context.Context) (string, error) {
	if c.modelOverride != "" {
		return c.modelOverride, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != "" {
		return c.model, nil
	}

	ctx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	var list modelList
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &list); err != nil {
		return "", fmt.Errorf("list models: %w", err)
	}
	if len(list.Data) == 0 || list.Data[0].ID == "" {
		return "", fmt.Errorf("list models: VIA reported no models")
	}
	c.model = list.Data[0].ID
	return c.model, nil
}

func uploadTimeout(size int64) time.Duration {
	t := time.Duration(size/(1024*1024)) * uploadTimeoutPerMB
	return min(max(t, uploadTimeoutMin), uploadTimeoutMax)
}

type fileResponse struct {
	ID string `json:"id"`
}

// UploadFile sends the video at path to VIA and returns its file id.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout(info.Size()))
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, f, filepath.Base(path)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out fileResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload file: VIA returned no file id")
	}
	return out.ID, nil
}

func writeUpload(mw *multipart.Writer, f io.Reader, name string) error {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.WriteField("purpose", "vision"); err != nil {
		return err
	}
	if err := mw.WriteField("media_type", "video"); err != nil {
		return err
	}
	return mw.Close()
}

// DeleteFile removes an uploaded file from VIA.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/files/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completion struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (r completion) content() (string, error) {
	if len(r.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return r.Choices[0].Message.Content, nil
}

// Summarize runs the summarization pipeline over an uploaded file and
// returns the aggregated summary text.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	req.EnableChat = true
	var out completion
	if err := c.doJSON(ctx, http.MethodPost, "/summarize", req, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) && isStreamFailure(se.Body) {
			return "", &StreamError{Detail: se.Body}
		}
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out.content()
}

// Query asks a question about a file that has been summarized with chat
// enabled.
func (c *Client) Query(ctx context.Context, req QueryRequest) (string, error) {
	body := queryBody{
		ID:            req.FileID,
		Model:         req.Model,
		ChunkDuration: req.ChunkDuration,
		Temperature:   req.Temperature,
		Seed:          req.Seed,
		MaxTokens:     req.MaxTokens,
		TopP:          req.TopP,
		TopK:          req.TopK,
		Messages:      []chatMessage{{Role: "user", Content: req.Question}},
	}
	var out completion
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	return out.content()
}

type recommendedConfigRequest struct {
	VideoLength          int `json:"video_length"`
	TargetResponseTime   int `json:"target_response_time"`
	UsecaseEventDuration int `json:"usecase_event_duration"`
}

type recommendedConfigResponse struct {
	ChunkSize float64 `json:"chunk_size"`
}

// RecommendedConfig returns VIA's raw chunk size suggestion for a video of
// the given length in seconds.
func (c *Client) RecommendedConfig(ctx context.Context, videoLength float64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	var out recommendedConfigResponse
	err := c.doJSON(ctx, http.MethodPost, "/recommended_config", recommendedConfigRequest{
		VideoLength:          int(videoLength),
		TargetResponseTime:   targetResponseTime,
		UsecaseEventDuration: usecaseEventDuration,
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("recommended config: %w", err)
	}
	return out.ChunkSize, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
