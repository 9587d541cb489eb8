package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/storage"
	"github.com/vsslab/vss/internal/via"
)

type mockStorage struct {
	mu                sync.Mutex
	uploaded          []string
	uploadFileErr     error
	downloadURL       string
	downloadErr       error
	dispositionURL    string
	deleteErr         error
	deleted           []string
	deleteCalled      chan string
	headErr           error
	downloadToFileErr error
	downloaded        []string
	objects           []storage.Object
	listErr           error
}

func (m *mockStorage) GenerateDownloadURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return m.downloadURL, m.downloadErr
}

func (m *mockStorage) GenerateDownloadURLWithDisposition(_ context.Context, _ string, _ string, _ time.Duration) (string, error) {
	if m.dispositionURL != "" {
		return m.dispositionURL, nil
	}
	return m.downloadURL, m.downloadErr
}

func (m *mockStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	if m.deleteErr == nil {
		m.deleted = append(m.deleted, key)
	}
	m.mu.Unlock()
	if m.deleteCalled != nil {
		m.deleteCalled <- key
	}
	return m.deleteErr
}

func (m *mockStorage) HeadObject(_ context.Context, _ string) (int64, string, error) {
	if m.headErr != nil {
		return 0, "", m.headErr
	}
	return 1024, "video/mp4", nil
}

func (m *mockStorage) DownloadToFile(_ context.Context, key string, destPath string) error {
	if m.downloadToFileErr != nil {
		return m.downloadToFileErr
	}
	m.mu.Lock()
	m.downloaded = append(m.downloaded, key)
	m.mu.Unlock()
	return os.WriteFile(destPath, []byte("source video"), 0o600)
}

func (m *mockStorage) UploadFile(_ context.Context, key string, _ string, _ string) error {
	if m.uploadFileErr != nil {
		return m.uploadFileErr
	}
	m.mu.Lock()
	m.uploaded = append(m.uploaded, key)
	m.mu.Unlock()
	return nil
}

func (m *mockStorage) List(_ context.Context, _ string) ([]storage.Object, error) {
	return m.objects, m.listErr
}

type fakeVIA struct {
	mu            sync.Mutex
	model         string
	modelErr      error
	uploadID      string
	uploadErr     error
	uploads       []string
	deleteErr     error
	deleted       []string
	deleteCalled  chan string
	summary       string
	summarizeErr  error
	summarizeReqs []via.SummarizeRequest
	answer        string
	queryErr      error
	queries       []via.QueryRequest
	chunk         int
	chunkLengths  []float64
}

func (f *fakeVIA) Model(context.Context) (string, error) {
	return f.model, f.modelErr
}

func (f *fakeVIA) UploadFile(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filepath.Base(path))
	return f.uploadID, f.uploadErr
}

func (f *fakeVIA) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	if f.deleteErr == nil {
		f.deleted = append(f.deleted, id)
	}
	f.mu.Unlock()
	if f.deleteCalled != nil {
		f.deleteCalled <- id
	}
	return f.deleteErr
}

func (f *fakeVIA) Summarize(_ context.Context, req via.SummarizeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarizeReqs = append(f.summarizeReqs, req)
	return f.summary, f.summarizeErr
}

func (f *fakeVIA) Query(_ context.Context, req via.QueryRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	return f.answer, f.queryErr
}

func (f *fakeVIA) RecommendChunkSize(_ context.Context, videoLength float64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkLengths = append(f.chunkLengths, videoLength)
	return f.chunk
}

type fakePrompter struct {
	summaryPrompt string
	question      string
	stamps        string
	stampsErr     error
	answer        string
	answerErr     error
	answerArgs    []string
}

func (p *fakePrompter) SummarizePrompt(_ context.Context, userPrompt string) string {
	if p.summaryPrompt != "" {
		return p.summaryPrompt
	}
	return "summarize: " + userPrompt
}

func (p *fakePrompter) QueryPrompt(_ context.Context, userPrompt string) string {
	if p.question != "" {
		return p.question
	}
	return "find: " + userPrompt
}

func (p *fakePrompter) ExtractTimestamps(context.Context, string) (string, error) {
	return p.stamps, p.stampsErr
}

func (p *fakePrompter) Answer(_ context.Context, question, summary string) (string, error) {
	p.answerArgs = []string{question, summary}
	return p.answer, p.answerErr
}

type cutCall struct {
	start, end float64
}

type testEnv struct {
	handler *Handler
	mock    pgxmock.PgxPoolIface
	storage *mockStorage
	via     *fakeVIA
	prompts *fakePrompter
	cuts    []cutCall
}

const testJWTSecret = "test-secret-for-video-tests"
const testUserID = "alice"
const testBaseURL = "https://vss.example.com"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)

	env := &testEnv{
		mock:    mock,
		storage: &mockStorage{downloadURL: "https://files.example.com/presigned"},
		via:     &fakeVIA{model: "vila-1.5", uploadID: "via-1", chunk: 60},
		prompts: &fakePrompter{},
	}
	env.handler = NewHandler(mock, env.storage, env.via, env.prompts, testBaseURL, 0)
	env.handler.probe = func(context.Context, string) (float64, error) { return 61.5, nil }
	env.handler.cut = func(_ context.Context, _, out string, start, end float64) error {
		env.cuts = append(env.cuts, cutCall{start, end})
		return os.WriteFile(out, []byte("clip"), 0o600)
	}
	return env
}

func (env *testEnv) router() http.Handler {
	h := env.handler
	r := chi.NewRouter()
	r.Use(auth.NewHandler(nil, testJWTSecret, nil).Middleware)
	r.Post("/upload-video", h.Upload)
	r.Get("/videos", h.List)
	r.Delete("/videos/{id}", h.Delete)
	r.Get("/video-files/{id}", h.ServeFile)
	r.Post("/vss-summarize", h.Summarize)
	r.Post("/vss-query", h.Query)
	r.Get("/get-recommended-chunk-size", h.RecommendedChunkSize)
	r.Post("/save-summary", h.SaveSummary)
	r.Get("/summaries", h.ListSummaries)
	r.Get("/summaries/{videoID}", h.GetSummary)
	r.Delete("/summaries", h.DeleteSummaries)
	r.Post("/generate-clips", h.GenerateClips)
	r.Post("/delete-clips", h.DeleteClips)
	r.Post("/remove-media", h.RemoveMedia)
	r.Get("/clips/{userID}/{name}", h.ServeClip)
	return r
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router().ServeHTTP(rec, req)
	return rec
}

func authenticatedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	token, err := auth.GenerateAccessToken(testJWTSecret, testUserID)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	req := authenticatedRequest(t, method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with fields and, when fileName is set, a
// "file" part holding content.
func multipartRequest(t *testing.T, target string, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := authenticatedRequest(t, http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func parseErrorResponse(t *testing.T, body []byte) string {
	t.Helper()
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return errResp.Error
}

func waitFor(t *testing.T, ch <-chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestUpload_Success(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("fake mp4 data")
	createdAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	env.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM videos WHERE user_id = \$1 AND file_name = \$2\)`).
		WithArgs(testUserID, "parking.mp4").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	env.mock.ExpectQuery(`INSERT INTO videos`).
		WithArgs(testUserID, "parking.mp4", "parking.mp4", pgxmock.AnyArg(), int64(len(content)), 61.5, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	rec := env.serve(multipartRequest(t, "/upload-video", nil, "parking.mp4", content))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Video.ID != 7 || resp.Video.Duration != 61.5 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Video.FileURL != testBaseURL+"/video-files/7" {
		t.Errorf("unexpected file url %q", resp.Video.FileURL)
	}
	if resp.Video.VideoID == nil || *resp.Video.VideoID != "via-1" {
		t.Errorf("expected VIA id via-1, got %v", resp.Video.VideoID)
	}
	if resp.Video.CreatedAt != "2026-03-01T09:30:00Z" {
		t.Errorf("unexpected created_at %q", resp.Video.CreatedAt)
	}
	if len(env.storage.uploaded) != 1 || !strings.HasPrefix(env.storage.uploaded[0], "videos/alice/parking_") || !strings.HasSuffix(env.storage.uploaded[0], ".mp4") {
		t.Errorf("unexpected stored keys %v", env.storage.uploaded)
	}
	if len(env.via.uploads) != 1 || !strings.HasPrefix(env.via.uploads[0], "parking_") {
		t.Errorf("unexpected VIA uploads %v", env.via.uploads)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpload_VIAFailureStillStoresVideo(t *testing.T) {
	env := newTestEnv(t)
	env.via.uploadErr = errors.New("VIA down")

	env.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testUserID, "lobby.mkv").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	env.mock.ExpectQuery(`INSERT INTO videos`).
		WithArgs(testUserID, "lobby.mkv", "lobby.mkv", pgxmock.AnyArg(), int64(4), 61.5, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(8), time.Now()))

	rec := env.serve(multipartRequest(t, "/upload-video", nil, "lobby.mkv", []byte("data")))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Video.VideoID != nil {
		t.Errorf("expected null VIA id, got %q", *resp.Video.VideoID)
	}
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(multipartRequest(t, "/upload-video", nil, "notes.txt", []byte("hello")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec.Body.Bytes()); !strings.Contains(msg, "unsupported file format") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestUpload_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testUserID, "parking.mp4").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	rec := env.serve(multipartRequest(t, "/upload-video", nil, "parking.mp4", []byte("data")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec.Body.Bytes()); msg != "video already uploaded" {
		t.Errorf("unexpected error %q", msg)
	}
	if len(env.storage.uploaded) != 0 {
		t.Errorf("expected nothing stored, got %v", env.storage.uploaded)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(multipartRequest(t, "/upload-video", map[string]string{"title": "x"}, "", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec.Body.Bytes()); msg != "file is required" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestUpload_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.storage.uploadFileErr = errors.New("s3 down")
	env.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testUserID, "parking.mp4").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	rec := env.serve(multipartRequest(t, "/upload-video", nil, "parking.mp4", []byte("data")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(env.via.uploads) != 0 {
		t.Error("VIA upload should not run when storage fails")
	}
}

func TestUpload_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/upload-video", nil)

	rec := env.serve(req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestList_ReturnsVideosNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	viaID := "via-9"
	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery(`SELECT id, title, file_name, file_size, duration, via_file_id, created_at\s+FROM videos WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "file_name", "file_size", "duration", "via_file_id", "created_at"}).
			AddRow(int64(2), "b.mp4", "b.mp4", int64(2048), 30.0, &viaID, newer).
			AddRow(int64(1), "a.mp4", "a.mp4", int64(1024), 12.5, (*string)(nil), older))

	rec := env.serve(authenticatedRequest(t, http.MethodGet, "/videos?user_id="+testUserID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Videos []videoResponse `json:"videos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Videos) != 2 || resp.Videos[0].ID != 2 || resp.Videos[1].ID != 1 {
		t.Fatalf("unexpected videos %+v", resp.Videos)
	}
	if resp.Videos[0].VideoID == nil || *resp.Videos[0].VideoID != "via-9" || resp.Videos[1].VideoID != nil {
		t.Errorf("unexpected VIA ids")
	}
	if resp.Videos[1].FileURL != testBaseURL+"/video-files/1" {
		t.Errorf("unexpected file url %q", resp.Videos[1].FileURL)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(`SELECT id, title`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "file_name", "file_size", "duration", "via_file_id", "created_at"}))

	rec := env.serve(authenticatedRequest(t, http.MethodGet, "/videos", nil))

	if strings.TrimSpace(rec.Body.String()) != `{"videos":[]}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestList_ForeignUserIDRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(authenticatedRequest(t, http.MethodGet, "/videos?user_id=bob", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestDelete_RemovesRowSummaryAndFiles(t *testing.T) {
	env := newTestEnv(t)
	env.storage.deleteCalled = make(chan string, 1)
	env.via.deleteCalled = make(chan string, 1)
	viaID := "via-3"

	env.mock.ExpectQuery(`DELETE FROM videos WHERE id = \$1 AND user_id = \$2 RETURNING object_key, via_file_id`).
		WithArgs(int64(3), testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"object_key", "via_file_id"}).AddRow("videos/alice/a_1.mp4", &viaID))
	env.mock.ExpectExec(`DELETE FROM summaries WHERE video_id = \$1 AND user_id = \$2`).
		WithArgs("via-3", testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rec := env.serve(authenticatedRequest(t, http.MethodDelete, "/videos/3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if key := waitFor(t, env.storage.deleteCalled, "storage delete"); key != "videos/alice/a_1.mp4" {
		t.Errorf("unexpected deleted key %q", key)
	}
	if id := waitFor(t, env.via.deleteCalled, "VIA delete"); id != "via-3" {
		t.Errorf("unexpected VIA delete %q", id)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(`DELETE FROM videos`).
		WithArgs(int64(4), testUserID).
		WillReturnError(pgx.ErrNoRows)

	rec := env.serve(authenticatedRequest(t, http.MethodDelete, "/videos/4", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDelete_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(authenticatedRequest(t, http.MethodDelete, "/videos/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServeFile_Redirects(t *testing.T) {
	env := newTestEnv(t)
	env.storage.dispositionURL = "https://files.example.com/attachment"

	for _, tc := range []struct {
		target string
		want   string
	}{
		{"/video-files/5", "https://files.example.com/presigned"},
		{"/video-files/5?download=1", "https://files.example.com/attachment"},
	} {
		env.mock.ExpectQuery(`SELECT object_key, file_name FROM videos WHERE id = \$1 AND user_id = \$2`).
			WithArgs(int64(5), testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"object_key", "file_name"}).AddRow("videos/alice/a_1.mp4", "a.mp4"))

		rec := env.serve(authenticatedRequest(t, http.MethodGet, tc.target, nil))

		if rec.Code != http.StatusFound {
			t.Fatalf("%s: expected 302, got %d", tc.target, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != tc.want {
			t.Errorf("%s: expected redirect to %s, got %s", tc.target, tc.want, loc)
		}
	}
}

func TestStoredNameAddsMillisecondStamp(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := storedName("Parking Lot.MP4", now); got != "Parking Lot_1700000000123.mp4" {
		t.Errorf("unexpected stored name %q", got)
	}
}

func TestSafeStem(t *testing.T) {
	if got := safeStem("주차장 cam#1"); got != "주차장_cam_1" {
		t.Errorf("unexpected stem %q", got)
	}
}
