// Package report stores the summary reports users compile from one or more
// videos.
package report

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

type createRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	VideoIDs    []string `json:"video_ids"`
	VideoTitles []string `json:"video_titles"`
}

type reportResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	WordCount   int      `json:"word_count"`
	VideoIDs    []string `json:"video_ids"`
	VideoTitles []string `json:"video_titles"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type pageResponse struct {
	Reports  []reportResponse `json:"reports"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Pages    int              `json:"pages"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if strings.TrimSpace(req.Content) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "report content is required")
		return
	}
	for _, msg := range []string{
		validate.ReportTitle(req.Title),
		validate.ReportDescription(req.Description),
		validate.ReportContent(req.Content),
	} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	resp := reportResponse{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		WordCount:   len(strings.Fields(req.Content)),
		VideoIDs:    nonNil(req.VideoIDs),
		VideoTitles: nonNil(req.VideoTitles),
	}
	var createdAt, updatedAt time.Time
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO reports (user_id, title, description, content, word_count, video_ids, video_titles)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		userID, resp.Title, resp.Description, resp.Content, resp.WordCount, resp.VideoIDs, resp.VideoTitles,
	).Scan(&resp.ID, &createdAt, &updatedAt)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create report")
		return
	}
	resp.CreatedAt = formatTime(createdAt)
	resp.UpdatedAt = formatTime(updatedAt)

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// pagination reads page (from 1) and page_size (1 to 100, default 10).
func pagination(r *http.Request) (page, size int) {
	page, size = 1, defaultPageSize
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && s > 0 {
		size = min(s, maxPageSize)
	}
	return page, size
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	page, size := pagination(r)

	var total int
	if err := h.db.QueryRow(r.Context(),
		"SELECT COUNT(*) FROM reports WHERE user_id = $1", userID,
	).Scan(&total); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to count reports")
		return
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT id, title, description, content, word_count, video_ids, video_titles, created_at, updated_at
		 FROM reports WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, size, (page-1)*size,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	defer rows.Close()

	reports := make([]reportResponse, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan report")
			return
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	httputil.WriteJSON(w, http.StatusOK, pageResponse{
		Reports:  reports,
		Total:    total,
		Page:     page,
		PageSize: size,
		Pages:    pages,
	})
}

func scanReport(row pgx.Row) (reportResponse, error) {
	var rep reportResponse
	var createdAt, updatedAt time.Time
	if err := row.Scan(&rep.ID, &rep.Title, &rep.Description, &rep.Content, &rep.WordCount,
		&rep.VideoIDs, &rep.VideoTitles, &createdAt, &updatedAt); err != nil {
		return reportResponse{}, err
	}
	rep.VideoIDs = nonNil(rep.VideoIDs)
	rep.VideoTitles = nonNil(rep.VideoTitles)
	rep.CreatedAt = formatTime(createdAt)
	rep.UpdatedAt = formatTime(updatedAt)
	return rep, nil
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid report id")
		return 0, false
	}
	return id, true
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	rep, err := scanReport(h.db.QueryRow(r.Context(),
		`SELECT id, title, description, content, word_count, video_ids, video_titles, created_at, updated_at
		 FROM reports WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "report not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	tag, err := h.db.Exec(r.Context(),
		"DELETE FROM reports WHERE id = $1 AND user_id = $2", id, userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "report not found")
		return
	}
	httputil.WriteAck(w, http.StatusOK, fmt.Sprintf("report %d deleted", id))
}
