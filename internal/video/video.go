package video

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
)

const downloadURLExpiry = time.Hour

type videoResponse struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	FileName  string  `json:"file_name"`
	FileURL   string  `json:"file_url"`
	FileSize  int64   `json:"file_size"`
	Duration  float64 `json:"duration"`
	VideoID   *string `json:"video_id"`
	CreatedAt string  `json:"created_at"`
}

type uploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Video   videoResponse `json:"video"`
}

// parseMultipart applies the upload limit and parses the form, writing the
// error response itself.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return false
		}
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return false
	}
	return true
}

// Upload stores a video in object storage and registers it with VIA. A VIA
// failure does not fail the upload; the file is registered on first use.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if !h.parseMultipart(w, r) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := formFile(r)
	if err != nil || file == nil {
		httputil.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	fileName := filepath.Base(header.Filename)
	_, ext := splitName(fileName)
	contentType, ok := allowedExtensions[ext]
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, errUnsupportedFormat.Error())
		return
	}
	if msg := validate.Title(fileName); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var exists bool
	if err := h.db.QueryRow(r.Context(),
		"SELECT EXISTS (SELECT 1 FROM videos WHERE user_id = $1 AND file_name = $2)",
		userID, fileName,
	).Scan(&exists); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check existing videos")
		return
	}
	if exists {
		httputil.WriteError(w, http.StatusBadRequest, "video already uploaded")
		return
	}

	dir, err := os.MkdirTemp("", "vss-upload-*")
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	name := storedName(fileName, time.Now())
	path, size, err := spoolUpload(file, dir, name)
	if err != nil {
		slog.Error("upload: spool failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	duration, err := h.probe(r.Context(), path)
	if err != nil {
		slog.Warn("upload: duration probe failed", "file", fileName, "error", err)
		duration = 0
	}

	key := videoFileKey(userID, name)
	if err := h.storage.UploadFile(r.Context(), key, path, contentType); err != nil {
		slog.Error("upload: storage failed", "key", key, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store video")
		return
	}

	var viaID *string
	if id, err := h.via.UploadFile(r.Context(), path); err != nil {
		slog.Warn("upload: VIA registration failed", "file", fileName, "error", err)
	} else {
		viaID = &id
	}

	var id int64
	var createdAt time.Time
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO videos (user_id, title, file_name, object_key, file_size, duration, via_file_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		userID, fileName, fileName, key, size, duration, viaID,
	).Scan(&id, &createdAt)
	if err != nil {
		if delErr := h.storage.DeleteObject(r.Context(), key); delErr != nil {
			slog.Error("upload: failed to remove stored file", "key", key, "error", delErr)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusBadRequest, "video already uploaded")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	slog.Info("upload: video stored", "video_id", id, "user_id", userID, "size", size, "duration", duration)
	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{
		Success: true,
		Message: "video uploaded",
		Video: videoResponse{
			ID:        id,
			Title:     fileName,
			FileName:  fileName,
			FileURL:   h.videoFileURL(id),
			FileSize:  size,
			Duration:  duration,
			VideoID:   viaID,
			CreatedAt: createdAt.UTC().Format(time.RFC3339),
		},
	})
}

// List returns the caller's videos, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	rows, err := h.db.Query(r.Context(),
		`SELECT id, title, file_name, file_size, duration, via_file_id, created_at
		 FROM videos WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}
	defer rows.Close()

	videos := make([]videoResponse, 0)
	for rows.Next() {
		var v videoResponse
		var createdAt time.Time
		if err := rows.Scan(&v.ID, &v.Title, &v.FileName, &v.FileSize, &v.Duration, &v.VideoID, &createdAt); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan video")
			return
		}
		v.FileURL = h.videoFileURL(v.ID)
		v.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"videos": videos})
}

func pathVideoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video id")
		return 0, false
	}
	return id, true
}

// Delete removes the video row and its saved summary, then deletes the
// stored file and the VIA copy in the background.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	var objectKey string
	var viaID *string
	err := h.db.QueryRow(r.Context(),
		"DELETE FROM videos WHERE id = $1 AND user_id = $2 RETURNING object_key, via_file_id",
		id, userID,
	).Scan(&objectKey, &viaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	if viaID != nil {
		if _, err := h.db.Exec(r.Context(),
			"DELETE FROM summaries WHERE video_id = $1 AND user_id = $2", *viaID, userID,
		); err != nil {
			slog.Warn("video: summary delete failed", "via_id", *viaID, "error", err)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := deleteWithRetry(ctx, h.storage, objectKey, 3); err != nil {
			slog.Error("video: all delete retries failed", "key", objectKey, "error", err)
		}
		if viaID != nil {
			if err := h.via.DeleteFile(ctx, *viaID); err != nil {
				slog.Warn("video: VIA file delete failed", "via_id", *viaID, "error", err)
			}
		}
	}()

	httputil.WriteAck(w, http.StatusOK, "video deleted")
}

// ServeFile redirects to a short-lived download URL for the stored video.
// download=1 asks for an attachment disposition.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	var objectKey, fileName string
	err := h.db.QueryRow(r.Context(),
		"SELECT object_key, file_name FROM videos WHERE id = $1 AND user_id = $2",
		id, userID,
	).Scan(&objectKey, &fileName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load video")
		return
	}

	var url string
	if r.URL.Query().Get("download") == "1" {
		url, err = h.storage.GenerateDownloadURLWithDisposition(r.Context(), objectKey, fileName, downloadURLExpiry)
	} else {
		url, err = h.storage.GenerateDownloadURL(r.Context(), objectKey, downloadURLExpiry)
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
