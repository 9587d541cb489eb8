package video

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/via"
)

type summarizeResponse struct {
	Summary string `json:"summary"`
	VideoID string `json:"video_id"`
}

type queryRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	VideoID  string `json:"video_id"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

// A VIA file id belongs to a user either through one of their stored videos
// or through a file they sent straight to /vss-summarize.
const ownedVIAFileQuery = `SELECT duration FROM videos WHERE via_file_id = $1 AND user_id = $2
UNION ALL
SELECT 0::double precision FROM via_files WHERE via_file_id = $1 AND user_id = $2
LIMIT 1`

type chunkSizeResponse struct {
	RecommendedChunkSize int     `json:"recommended_chunk_size"`
	VideoLength          float64 `json:"video_length"`
}

// summarizeFromForm overlays the client's generation settings on the
// server defaults.
func summarizeFromForm(r *http.Request, fileID, model string) via.SummarizeRequest {
	req := via.DefaultSummarizeRequest(fileID, model, via.DefaultSummarizePrompt, 0)

	req.Prompt = formString(r, "prompt", req.Prompt)
	req.CaptionSummarizationPrompt = formString(r, "csprompt", req.CaptionSummarizationPrompt)
	req.SummaryAggregationPrompt = formString(r, "saprompt", req.SummaryAggregationPrompt)

	req.ChunkDuration = formInt(r, "chunk_duration", req.ChunkDuration)
	req.NumFramesPerChunk = formInt(r, "num_frames_per_chunk", req.NumFramesPerChunk)
	req.VLMInputWidth = formInt(r, "frame_width", req.VLMInputWidth)
	req.VLMInputHeight = formInt(r, "frame_height", req.VLMInputHeight)
	req.TopK = formInt(r, "top_k", req.TopK)
	req.TopP = formFloat(r, "top_p", req.TopP)
	req.Temperature = formFloat(r, "temperature", req.Temperature)
	req.MaxTokens = formInt(r, "max_tokens", req.MaxTokens)
	req.Seed = formInt(r, "seed", req.Seed)
	req.SummarizeBatchSize = formInt(r, "batch_size", req.SummarizeBatchSize)
	req.RAGBatchSize = formInt(r, "rag_batch_size", req.RAGBatchSize)
	req.RAGTopK = formInt(r, "rag_top_k", req.RAGTopK)

	req.SummarizeTopP = formFloat(r, "summary_top_p", req.SummarizeTopP)
	req.SummarizeTemperature = formFloat(r, "summary_temperature", req.SummarizeTemperature)
	req.SummarizeMaxTokens = formInt(r, "summary_max_tokens", req.SummarizeMaxTokens)
	req.ChatTopP = formFloat(r, "chat_top_p", req.ChatTopP)
	req.ChatTemperature = formFloat(r, "chat_temperature", req.ChatTemperature)
	req.ChatMaxTokens = formInt(r, "chat_max_tokens", req.ChatMaxTokens)
	req.NotificationTopP = formFloat(r, "alert_top_p", req.NotificationTopP)
	req.NotificationTemperature = formFloat(r, "alert_temperature", req.NotificationTemperature)
	req.NotificationMaxTokens = formInt(r, "alert_max_tokens", req.NotificationMaxTokens)

	req.EnableAudio = formBool(r, "enable_audio", req.EnableAudio)
	return req
}

// checkVIAFile returns the stored duration of a VIA file the user owns, zero
// when it was never probed, and writes 404 for ids that are not theirs.
func (h *Handler) checkVIAFile(w http.ResponseWriter, r *http.Request, userID, fileID string) (float64, bool) {
	var duration float64
	err := h.db.QueryRow(r.Context(), ownedVIAFileQuery, fileID, userID).Scan(&duration)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return 0, false
	}
	if err != nil {
		slog.Error("VIA file lookup failed", "video_id", fileID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to look up video")
		return 0, false
	}
	return duration, true
}

// Summarize runs a VIA summary for one of the user's VIA file ids, or for a
// file sent with the request which is registered with VIA first.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if !h.parseMultipart(w, r) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	videoID := strings.TrimSpace(r.FormValue("video_id"))
	if msg := validate.Prompt(r.FormValue("prompt")); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if videoID != "" {
		if _, ok := h.checkVIAFile(w, r, userID, videoID); !ok {
			return
		}
	} else {
		file, header, err := formFile(r)
		if err != nil || file == nil {
			httputil.WriteError(w, http.StatusBadRequest, "video_id or file is required")
			return
		}
		defer func() { _ = file.Close() }()

		if _, ext := splitName(header.Filename); allowedExtensions[ext] == "" {
			httputil.WriteError(w, http.StatusBadRequest, errUnsupportedFormat.Error())
			return
		}

		dir, err := os.MkdirTemp("", "vss-summarize-*")
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to read upload")
			return
		}
		defer func() { _ = os.RemoveAll(dir) }()

		path, _, err := spoolUpload(file, dir, storedName(filepath.Base(header.Filename), time.Now()))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to read upload")
			return
		}
		videoID, err = h.via.UploadFile(r.Context(), path)
		if err != nil {
			slog.Error("summarize: VIA upload failed", "error", err)
			httputil.WriteError(w, http.StatusBadGateway, "failed to upload video to VIA")
			return
		}
		if _, err := h.db.Exec(r.Context(),
			"INSERT INTO via_files (via_file_id, user_id) VALUES ($1, $2) ON CONFLICT (via_file_id) DO NOTHING",
			videoID, userID,
		); err != nil {
			slog.Error("summarize: failed to record VIA file", "video_id", videoID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to record video")
			return
		}
	}

	model, err := h.via.Model(r.Context())
	if err != nil {
		slog.Error("summarize: model lookup failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "VIA server is unavailable")
		return
	}

	summary, err := h.via.Summarize(r.Context(), summarizeFromForm(r, videoID, model))
	if err != nil {
		slog.Error("summarize: VIA summarize failed", "video_id", videoID, "error", err)
		var streamErr *via.StreamError
		if errors.As(err, &streamErr) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, "technical error: "+streamErr.Error())
			return
		}
		httputil.WriteError(w, http.StatusBadGateway, "failed to summarize video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summarizeResponse{Summary: summary, VideoID: videoID})
}

// Query answers a follow-up question. With a VIA file id the question goes
// to VIA's chat over the indexed video; without one it is answered from the
// summary text alone.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req queryRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if msg := validate.Question(req.Question); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if req.VideoID == "" {
		if strings.TrimSpace(req.Context) == "" {
			httputil.WriteError(w, http.StatusBadRequest, "context is required without video_id")
			return
		}
		answer, err := h.prompts.Answer(r.Context(), req.Question, req.Context)
		if err != nil {
			slog.Error("query: LLM answer failed", "error", err)
			httputil.WriteError(w, http.StatusBadGateway, "failed to answer question")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, queryResponse{Answer: answer})
		return
	}

	duration, ok := h.checkVIAFile(w, r, userID, req.VideoID)
	if !ok {
		return
	}

	model, err := h.via.Model(r.Context())
	if err != nil {
		slog.Error("query: model lookup failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "VIA server is unavailable")
		return
	}

	chunk := 0
	if duration > 0 {
		chunk = h.via.RecommendChunkSize(r.Context(), duration)
	}

	answer, err := h.via.Query(r.Context(), via.NewQuery(req.VideoID, model, req.Question, chunk))
	if err != nil {
		slog.Error("query: VIA query failed", "video_id", req.VideoID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to answer question")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

func (h *Handler) RecommendedChunkSize(w http.ResponseWriter, r *http.Request) {
	length, err := strconv.ParseFloat(r.URL.Query().Get("video_length"), 64)
	if err != nil || length < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "video_length must be a non-negative number")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, chunkSizeResponse{
		RecommendedChunkSize: h.via.RecommendChunkSize(r.Context(), length),
		VideoLength:          length,
	})
}
