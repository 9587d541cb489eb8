package via

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func TestModel_CachesFirstModel(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":[{"id":"vila-1.5"},{"id":"other"}]}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "")
	for range 3 {
		model, err := client.Model(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if model != "vila-1.5" {
			t.Errorf("model = %q, want vila-1.5", model)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 models request, got %d", calls.Load())
	}
}

func TestModel_Override(t *testing.T) {
	client := New("http://127.0.0.1:1", "cosmos-reason1")
	model, err := client.Model(context.Background())
	if err != nil || model != "cosmos-reason1" {
		t.Errorf("Model() = %q, %v", model, err)
	}
}

func TestModel_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "").Model(context.Background()); err == nil {
		t.Error("expected error for empty model list")
	}
}

func TestUploadFile(t *testing.T) {
	var purpose, mediaType, fileName, content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		purpose = r.FormValue("purpose")
		mediaType = r.FormValue("media_type")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		fileName = hdr.Filename
		b, _ := io.ReadAll(f)
		content = string(b)
		_, _ = w.Write([]byte(`{"id":"file-123","bytes":10}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "parking.mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := New(server.URL, "").UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "file-123" {
		t.Errorf("id = %q, want file-123", id)
	}
	if purpose != "vision" || mediaType != "video" {
		t.Errorf("purpose=%q media_type=%q", purpose, mediaType)
	}
	if fileName != "parking.mp4" || content != "fake video" {
		t.Errorf("file part %q = %q", fileName, content)
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	_, err := New("http://127.0.0.1:1", "").UploadFile(context.Background(), filepath.Join(t.TempDir(), "none.mp4"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUploadTimeout(t *testing.T) {
	tests := []struct {
		size int64
		want time.Duration
	}{
		{0, 60 * time.Second},
		{5 << 20, 60 * time.Second},
		{20 << 20, 200 * time.Second},
		{100 << 20, 600 * time.Second},
	}
	for _, tt := range tests {
		if got := uploadTimeout(tt.size); got != tt.want {
			t.Errorf("uploadTimeout(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestSummarize_SendsParametersAndReadsContent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summarize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(completionJSON("0.0-12.5 A car enters the lot.")))
	}))
	defer server.Close()

	req := DefaultSummarizeRequest("file-1", "vila", "find cars", 30)
	req.VLMInputWidth = 640
	summary, err := New(server.URL, "").Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "0.0-12.5 A car enters the lot." {
		t.Errorf("summary = %q", summary)
	}

	checks := map[string]any{
		"id":                   "file-1",
		"model":                "vila",
		"prompt":               "find cars",
		"chunk_duration":       float64(30),
		"vlm_input_width":      float64(640),
		"summarize_batch_size": float64(6),
		"enable_chat":          true,
		"enable_audio":         true,
	}
	for k, want := range checks {
		if body[k] != want {
			t.Errorf("body[%q] = %v, want %v", k, body[k], want)
		}
	}
}

func TestSummarize_StreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"gst-stream-error-quark: Internal data stream error (qtdemux)"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Summarize(context.Background(), SummarizeRequest{ID: "f"})
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if !strings.Contains(se.Error(), "qtdemux") {
		t.Errorf("expected VIA detail in message, got %q", se.Error())
	}
}

func TestSummarize_OtherFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`bad chunk_duration`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Summarize(context.Background(), SummarizeRequest{ID: "f"})
	var status *StatusError
	if !errors.As(err, &status) || status.Status != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	var se *StreamError
	if errors.As(err, &se) {
		t.Error("plain failures must not be reported as stream errors")
	}
}

func TestQuery(t *testing.T) {
	var body queryBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(completionJSON("12.0-20.5")))
	}))
	defer server.Close()

	answer, err := New(server.URL, "").Query(context.Background(), NewQuery("file-1", "vila", "when does the car park?", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "12.0-20.5" {
		t.Errorf("answer = %q", answer)
	}
	if body.ID != "file-1" || body.MaxTokens != 1024 || body.Seed != 42 || body.TopK != 80 {
		t.Errorf("unexpected query body %+v", body)
	}
	if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "when does the car park?" {
		t.Errorf("unexpected messages %+v", body.Messages)
	}
}

func TestQuery_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Query(context.Background(), NewQuery("f", "m", "q", 0))
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestDeleteFile(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		_, _ = w.Write([]byte(`{"id":"file-9","deleted":true}`))
	}))
	defer server.Close()

	if err := New(server.URL, "").DeleteFile(context.Background(), "file-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/files/file-9" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
}
