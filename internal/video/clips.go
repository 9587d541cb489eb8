package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/via"
)

type generateClipsRequest struct {
	Prompt   string  `json:"prompt"`
	VideoIDs []int64 `json:"video_ids"`
}

// clipResponse is either an extracted clip or, when no time range could be
// found, a single entry carrying VIA's answer.
type clipResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         *string  `json:"url"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	SearchQuery string   `json:"search_query"`
	VIAResponse string   `json:"via_response,omitempty"`
}

type clipGroup struct {
	Video string         `json:"video"`
	Clips []clipResponse `json:"clips"`
}

type generateClipsResponse struct {
	Clips          []clipGroup `json:"clips"`
	ClipsExtracted bool        `json:"clips_extracted"`
}

type deleteClipsRequest struct {
	ClipURLs []string `json:"clip_urls"`
}

type removeMediaRequest struct {
	MediaIDs []string `json:"media_ids"`
}

// clipSearch carries the prompts shared by every video of one request.
type clipSearch struct {
	userID        string
	model         string
	userPrompt    string
	summaryPrompt string
	question      string
	workDir       string
}

type sourceVideo struct {
	id        int64
	fileName  string
	objectKey string
	duration  float64
	viaID     *string
	localPath string
}

// safeStem keeps letters, digits, dots, dashes and underscores so clip
// names can be used as URL path segments.
func safeStem(stem string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, stem)
}

// GenerateClips finds scenes matching the prompt in each selected video and
// cuts them into clips. Videos that cannot be searched are skipped.
func (h *Handler) GenerateClips(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req generateClipsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		httputil.WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if msg := validate.Prompt(req.Prompt); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.VideoIDs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "video_ids is required")
		return
	}

	model, err := h.via.Model(r.Context())
	if err != nil {
		slog.Error("clips: model lookup failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "VIA server is unavailable")
		return
	}

	dir, err := os.MkdirTemp("", "vss-clips-*")
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to prepare clip workspace")
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	search := clipSearch{
		userID:        userID,
		model:         model,
		userPrompt:    req.Prompt,
		summaryPrompt: h.prompts.SummarizePrompt(r.Context(), req.Prompt),
		question:      h.prompts.QueryPrompt(r.Context(), req.Prompt),
		workDir:       dir,
	}

	groups := make([]clipGroup, 0, len(req.VideoIDs))
	for _, id := range req.VideoIDs {
		group, err := h.clipsForVideo(r.Context(), search, id)
		if err != nil {
			slog.Warn("clips: video skipped", "video_id", id, "error", err)
			continue
		}
		groups = append(groups, group)
	}
	if len(groups) == 0 {
		httputil.WriteError(w, http.StatusBadGateway, "failed to search the selected videos")
		return
	}

	extracted := false
	for _, g := range groups {
		for _, c := range g.Clips {
			if c.URL != nil && c.VIAResponse == "" {
				extracted = true
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, generateClipsResponse{Clips: groups, ClipsExtracted: extracted})
}

// source downloads the stored video once per request.
func (h *Handler) source(ctx context.Context, dir string, v *sourceVideo) (string, error) {
	if v.localPath != "" {
		return v.localPath, nil
	}
	_, ext := splitName(v.fileName)
	path := filepath.Join(dir, fmt.Sprintf("source_%d%s", v.id, ext))
	if err := h.storage.DownloadToFile(ctx, v.objectKey, path); err != nil {
		return "", fmt.Errorf("download %s: %w", v.objectKey, err)
	}
	v.localPath = path
	return path, nil
}

func (h *Handler) clipsForVideo(ctx context.Context, s clipSearch, id int64) (clipGroup, error) {
	v := sourceVideo{id: id}
	err := h.db.QueryRow(ctx,
		"SELECT file_name, object_key, duration, via_file_id FROM videos WHERE id = $1 AND user_id = $2",
		id, s.userID,
	).Scan(&v.fileName, &v.objectKey, &v.duration, &v.viaID)
	if err != nil {
		return clipGroup{}, fmt.Errorf("load video: %w", err)
	}

	if v.viaID == nil {
		path, err := h.source(ctx, s.workDir, &v)
		if err != nil {
			return clipGroup{}, err
		}
		fileID, err := h.via.UploadFile(ctx, path)
		if err != nil {
			return clipGroup{}, fmt.Errorf("register with VIA: %w", err)
		}
		v.viaID = &fileID
		if _, err := h.db.Exec(ctx, "UPDATE videos SET via_file_id = $1 WHERE id = $2", fileID, id); err != nil {
			slog.Warn("clips: failed to record VIA file id", "video_id", id, "error", err)
		}
	}
	viaID := *v.viaID

	if v.duration <= 0 {
		path, err := h.source(ctx, s.workDir, &v)
		if err != nil {
			return clipGroup{}, err
		}
		if d, err := h.probe(ctx, path); err != nil {
			slog.Warn("clips: duration probe failed", "video_id", id, "error", err)
		} else {
			v.duration = d
		}
	}
	chunk := h.via.RecommendChunkSize(ctx, v.duration)

	if err := h.ensureSummary(ctx, s, viaID, chunk); err != nil {
		return clipGroup{}, err
	}

	query := via.NewQuery(viaID, s.model, s.question, chunk)
	query.Temperature = 0
	answer, err := h.via.Query(ctx, query)
	if err != nil {
		return clipGroup{}, fmt.Errorf("query VIA: %w", err)
	}

	stamps, err := h.prompts.ExtractTimestamps(ctx, answer)
	if err != nil {
		slog.Warn("clips: timestamp extraction failed", "video_id", id, "error", err)
		stamps = ""
	}

	stem, _ := splitName(v.fileName)
	stem = safeStem(stem)
	millis := time.Now().UnixMilli()
	group := clipGroup{Video: v.fileName, Clips: []clipResponse{}}

	for idx, rg := range ParseTimestamps(stamps, v.duration) {
		if rg.End-rg.Start <= 0 {
			continue
		}
		path, err := h.source(ctx, s.workDir, &v)
		if err != nil {
			slog.Warn("clips: source unavailable", "video_id", id, "error", err)
			break
		}
		name := fmt.Sprintf("clip_%s_%d_%d.mp4", stem, millis, idx+1)
		out := filepath.Join(s.workDir, name)
		if err := h.cut(ctx, path, out, rg.Start, rg.End); err != nil {
			slog.Warn("clips: cut failed", "video_id", id, "start", rg.Start, "end", rg.End, "error", err)
			continue
		}
		if err := h.storage.UploadFile(ctx, clipKey(s.userID, name), out, "video/mp4"); err != nil {
			slog.Warn("clips: upload failed", "clip", name, "error", err)
			continue
		}

		url := h.clipURL(s.userID, name)
		start, end := rg.Start, rg.End
		group.Clips = append(group.Clips, clipResponse{
			ID:          fmt.Sprintf("%s_%d_%d", stem, millis, idx),
			Title:       name,
			URL:         &url,
			StartTime:   &start,
			EndTime:     &end,
			SearchQuery: s.userPrompt,
		})
	}

	if len(group.Clips) == 0 {
		group.Clips = append(group.Clips, clipResponse{
			ID:          fmt.Sprintf("%s_%d_no_timestamp", stem, millis),
			Title:       "VIA response",
			SearchQuery: s.userPrompt,
			VIAResponse: answer,
		})
	}
	return group, nil
}

// ensureSummary reuses a saved summary made with the same prompt; otherwise
// it summarizes again with deterministic sampling and saves the result.
func (h *Handler) ensureSummary(ctx context.Context, s clipSearch, viaID string, chunk int) error {
	var storedPrompt string
	err := h.db.QueryRow(ctx,
		"SELECT prompt FROM summaries WHERE video_id = $1 AND user_id = $2",
		viaID, s.userID,
	).Scan(&storedPrompt)
	switch {
	case err == nil && strings.TrimSpace(storedPrompt) == strings.TrimSpace(s.summaryPrompt):
		return nil
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		slog.Warn("clips: summary lookup failed", "via_id", viaID, "error", err)
	}

	req := via.DefaultSummarizeRequest(viaID, s.model, s.summaryPrompt, chunk)
	req.Temperature = 0
	req.SummarizeTemperature = 0
	req.ChatTemperature = 0
	req.NotificationTemperature = 0

	summary, err := h.via.Summarize(ctx, req)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if err := h.upsertSummary(ctx, viaID, s.userID, summary, s.summaryPrompt); err != nil {
		slog.Warn("clips: failed to save summary", "via_id", viaID, "error", err)
	}
	return nil
}

// clipPath returns "{user}/{file}" from a clip URL.
func clipPath(raw string) (string, bool) {
	_, rest, found := strings.Cut(raw, "/clips/")
	if !found {
		return "", false
	}
	rest, _, _ = strings.Cut(rest, "?")
	return rest, rest != ""
}

func validClipName(name string) bool {
	return name != "" && !strings.Contains(name, "/") && !strings.Contains(name, "..")
}

func (h *Handler) DeleteClips(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req deleteClipsRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if len(req.ClipURLs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "clip_urls is required")
		return
	}

	deleted, failed := 0, 0
	for _, u := range req.ClipURLs {
		rel, ok := clipPath(u)
		owner, name, _ := strings.Cut(rel, "/")
		if !ok || owner != userID || !validClipName(name) {
			slog.Warn("clips: refusing to delete", "url", u)
			failed++
			continue
		}
		if err := h.storage.DeleteObject(r.Context(), clipKey(userID, name)); err != nil {
			slog.Warn("clips: delete failed", "clip", name, "error", err)
			failed++
			continue
		}
		deleted++
	}

	httputil.WriteJSON(w, http.StatusOK, deleteResult{
		Success:      failed == 0,
		Message:      fmt.Sprintf("Deleted %d clip(s)", deleted),
		DeletedCount: deleted,
		FailedCount:  failed,
	})
}

// RemoveMedia deletes files from the VIA server and forgets their ids so
// the videos are registered again on next use.
func (h *Handler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req removeMediaRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if len(req.MediaIDs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "media_ids is required")
		return
	}

	owned, err := h.ownedVIAFiles(r.Context(), userID, req.MediaIDs)
	if err != nil {
		slog.Error("media: ownership lookup failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to remove media")
		return
	}

	removed := make([]string, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		if !owned[id] {
			slog.Warn("media: skipping file not owned by user", "media_id", id, "user_id", userID)
			continue
		}
		if err := h.via.DeleteFile(r.Context(), id); err != nil {
			slog.Warn("media: VIA delete failed", "media_id", id, "error", err)
			continue
		}
		removed = append(removed, id)
	}

	if len(removed) > 0 {
		if _, err := h.db.Exec(r.Context(),
			"UPDATE videos SET via_file_id = NULL WHERE user_id = $1 AND via_file_id = ANY($2)",
			userID, removed,
		); err != nil {
			slog.Warn("media: failed to clear VIA file ids", "error", err)
		}
		if _, err := h.db.Exec(r.Context(),
			"DELETE FROM via_files WHERE user_id = $1 AND via_file_id = ANY($2)",
			userID, removed,
		); err != nil {
			slog.Warn("media: failed to forget VIA files", "error", err)
		}
	}

	httputil.WriteAck(w, http.StatusOK, fmt.Sprintf("Deleted %d media file(s)", len(removed)))
}

func (h *Handler) ownedVIAFiles(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	rows, err := h.db.Query(ctx,
		`SELECT via_file_id FROM videos WHERE user_id = $1 AND via_file_id = ANY($2)
		 UNION
		 SELECT via_file_id FROM via_files WHERE user_id = $1 AND via_file_id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query owned VIA files: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan VIA file id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

// ServeClip redirects the owner of a clip to a short-lived download URL.
func (h *Handler) ServeClip(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	owner := chi.URLParam(r, "userID")
	name := chi.URLParam(r, "name")
	if owner != userID {
		httputil.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	if !validClipName(name) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid clip name")
		return
	}

	key := clipKey(userID, name)
	if _, _, err := h.storage.HeadObject(r.Context(), key); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "clip not found")
		return
	}
	url, err := h.storage.GenerateDownloadURL(r.Context(), key, downloadURLExpiry)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
