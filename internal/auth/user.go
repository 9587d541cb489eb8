package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
)

type userResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type updateEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ownUserID returns the {id} path value when it names the caller.
func ownUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || id != UserIDFromContext(r.Context()) {
		httputil.WriteError(w, http.StatusForbidden, "access denied")
		return "", false
	}
	return id, true
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := ownUserID(w, r)
	if !ok {
		return
	}

	var email string
	var profileImageURL *string
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		"SELECT email, profile_image_url, created_at FROM users WHERE id = $1", id,
	).Scan(&email, &profileImageURL, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	resp := userResponse{ID: id, Email: email, CreatedAt: createdAt.UTC().Format(time.RFC3339)}
	if profileImageURL != nil {
		resp.ProfileImageURL = *profileImageURL
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// UpdateEmail moves the account to a new address verified through the
// registration code flow.
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := ownUserID(w, r)
	if !ok {
		return
	}

	var req updateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if msg := validate.Email(req.Email); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	verified, err := h.codeVerified(r.Context(), req.Email, purposeRegister, req.Code)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update email")
		return
	}
	if !verified {
		httputil.WriteError(w, http.StatusBadRequest, "email has not been verified")
		return
	}

	_, err = h.db.Exec(r.Context(),
		"UPDATE users SET email = $1, updated_at = now() WHERE id = $2", req.Email, id,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusConflict, "email already in use")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update email")
		return
	}

	h.consumeCodes(r.Context(), req.Email, purposeRegister)
	httputil.WriteJSON(w, http.StatusOK, httputil.Ack{Success: true, Message: "email updated"})
}
