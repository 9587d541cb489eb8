package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
)

type saveSummaryRequest struct {
	VideoID string `json:"video_id"`
	Content string `json:"content"`
	Prompt  string `json:"prompt"`
}

type summaryResponse struct {
	VideoID     string `json:"video_id"`
	SummaryText string `json:"summary_text"`
	Prompt      string `json:"prompt,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type deleteSummariesRequest struct {
	VideoIDs []string `json:"video_ids"`
}

type deleteResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
	FailedCount  int    `json:"failed_count"`
}

var errSummaryOwned = errors.New("summary belongs to another user")

// upsertSummary writes the summary for a VIA file id. A row owned by
// another user is left untouched and reported as errSummaryOwned.
func (h *Handler) upsertSummary(ctx context.Context, videoID, userID, text, prompt string) error {
	tag, err := h.db.Exec(ctx,
		`INSERT INTO summaries (video_id, user_id, summary_text, prompt)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (video_id) DO UPDATE
		 SET summary_text = EXCLUDED.summary_text, prompt = EXCLUDED.prompt, updated_at = now()
		 WHERE summaries.user_id = EXCLUDED.user_id`,
		videoID, userID, text, prompt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errSummaryOwned
	}
	return nil
}

func (h *Handler) SaveSummary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req saveSummaryRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" || strings.TrimSpace(req.Content) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "video_id and content are required")
		return
	}
	if msg := validate.Prompt(req.Prompt); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.upsertSummary(r.Context(), req.VideoID, userID, req.Content, req.Prompt); err != nil {
		if errors.Is(err, errSummaryOwned) {
			httputil.WriteError(w, http.StatusForbidden, "access denied")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save summary")
		return
	}
	httputil.WriteAck(w, http.StatusOK, "summary saved")
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID := chi.URLParam(r, "videoID")

	s := summaryResponse{VideoID: videoID}
	var createdAt, updatedAt time.Time
	err := h.db.QueryRow(r.Context(),
		`SELECT summary_text, prompt, created_at, updated_at
		 FROM summaries WHERE video_id = $1 AND user_id = $2`,
		videoID, userID,
	).Scan(&s.SummaryText, &s.Prompt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "summary not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	s.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	s.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	rows, err := h.db.Query(r.Context(),
		`SELECT video_id, summary_text, prompt, created_at, updated_at
		 FROM summaries WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}
	defer rows.Close()

	summaries := make([]summaryResponse, 0)
	for rows.Next() {
		var s summaryResponse
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&s.VideoID, &s.SummaryText, &s.Prompt, &createdAt, &updatedAt); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan summary")
			return
		}
		s.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		s.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// DeleteSummaries removes the caller's summaries for the given VIA file ids.
// Ids without a summary of the caller's count as failed.
func (h *Handler) DeleteSummaries(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req deleteSummariesRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if len(req.VideoIDs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "video_ids is required")
		return
	}

	tag, err := h.db.Exec(r.Context(),
		"DELETE FROM summaries WHERE user_id = $1 AND video_id = ANY($2)",
		userID, req.VideoIDs,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete summaries")
		return
	}

	deleted := int(tag.RowsAffected())
	httputil.WriteJSON(w, http.StatusOK, deleteResult{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d summary(ies)", deleted),
		DeletedCount: deleted,
		FailedCount:  len(req.VideoIDs) - deleted,
	})
}
