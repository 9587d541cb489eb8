package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	purposeRegister = "register"
	purposeReset    = "reset"

	CodeTTL = 10 * time.Minute

	// MaxCodeAttempts wrong guesses burn a code; the user has to request
	// a new one.
	MaxCodeAttempts = 5
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	req.Email = strings.TrimSpace(req.Email)
	if msg := validate.Email(req.Email); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return "", false
	}
	return req.Email, true
}

// issueCode stores a fresh code for email and purpose and sends it.
func (h *Handler) issueCode(ctx context.Context, w http.ResponseWriter, email, purpose string) {
	code, err := generateCode()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate code")
		return
	}

	if _, err := h.db.Exec(ctx,
		"INSERT INTO email_codes (email, purpose, code, expires_at) VALUES ($1, $2, $3, $4)",
		email, purpose, code, time.Now().Add(CodeTTL),
	); err != nil {
		slog.Error("verification code: insert failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create code")
		return
	}

	if err := h.codes.SendVerificationCode(ctx, email, code, purpose); err != nil {
		slog.Error("verification code: send failed", "email", email, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to send verification email")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Ack{Success: true, Message: "verification code sent"})
}

func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	var exists bool
	if err := h.db.QueryRow(r.Context(),
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email,
	).Scan(&exists); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if exists {
		httputil.WriteError(w, http.StatusConflict, "email already registered")
		return
	}

	h.issueCode(r.Context(), w, email, purposeRegister)
}

func (h *Handler) SendResetPasswordCode(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}

	var exists bool
	if err := h.db.QueryRow(r.Context(),
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email,
	).Scan(&exists); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if !exists {
		httputil.WriteError(w, http.StatusNotFound, "email not registered")
		return
	}

	h.issueCode(r.Context(), w, email, purposeReset)
}

func (h *Handler) VerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, purposeRegister)
}

func (h *Handler) VerifyResetPasswordCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, purposeReset)
}

// verifyCode marks the newest live code for email and purpose as verified
// when it matches. A mismatch counts against that code.
func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request, purpose string) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}
	if msg := validate.VerificationCode(req.Code); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	tag, err := h.db.Exec(r.Context(),
		`UPDATE email_codes SET verified = true
		 WHERE id = (
		   SELECT id FROM email_codes
		   WHERE email = $1 AND purpose = $2 AND expires_at > now() AND attempts < $4
		   ORDER BY created_at DESC LIMIT 1
		 ) AND code = $3`,
		req.Email, purpose, req.Code, MaxCodeAttempts,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to verify code")
		return
	}
	if tag.RowsAffected() == 0 {
		h.recordFailedAttempt(r.Context(), req.Email, purpose)
		httputil.WriteError(w, http.StatusBadRequest, "invalid or expired code")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Ack{Success: true, Message: "code verified"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email, code, and newPassword are required")
		return
	}
	if msg := validate.NewPassword(req.NewPassword); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	verified, err := h.codeVerified(r.Context(), req.Email, purposeReset, req.Code)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if !verified {
		httputil.WriteError(w, http.StatusBadRequest, "invalid or expired code")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	tag, err := h.db.Exec(r.Context(),
		"UPDATE users SET password = $1, updated_at = now() WHERE email = $2",
		string(hashedPassword), req.Email,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "email not registered")
		return
	}

	h.consumeCodes(r.Context(), req.Email, purposeReset)
	httputil.WriteJSON(w, http.StatusOK, httputil.Ack{Success: true, Message: "password updated"})
}

// codeVerified reports whether code was verified and is still usable. A
// miss counts as a failed attempt.
func (h *Handler) codeVerified(ctx context.Context, email, purpose, code string) (bool, error) {
	var ok bool
	if err := h.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM email_codes
		   WHERE email = $1 AND purpose = $2 AND code = $3 AND verified
		     AND expires_at > now() AND attempts < $4
		 )`,
		email, purpose, code, MaxCodeAttempts,
	).Scan(&ok); err != nil {
		return false, err
	}
	if !ok {
		h.recordFailedAttempt(ctx, email, purpose)
	}
	return ok, nil
}

func (h *Handler) recordFailedAttempt(ctx context.Context, email, purpose string) {
	if _, err := h.db.Exec(ctx,
		`UPDATE email_codes SET attempts = attempts + 1
		 WHERE id = (
		   SELECT id FROM email_codes
		   WHERE email = $1 AND purpose = $2 AND expires_at > now()
		   ORDER BY created_at DESC LIMIT 1
		 )`,
		email, purpose,
	); err != nil {
		slog.Warn("verification code: failed to record attempt", "email", email, "error", err)
	}
}

func (h *Handler) consumeCodes(ctx context.Context, email, purpose string) {
	if _, err := h.db.Exec(ctx,
		"DELETE FROM email_codes WHERE email = $1 AND purpose = $2", email, purpose,
	); err != nil {
		slog.Warn("verification code: cleanup failed", "email", email, "error", err)
	}
}

// StartCodeCleanupLoop purges expired codes every interval until ctx ends.
func StartCodeCleanupLoop(ctx context.Context, db database.DBTX, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purgeExpiredCodes(ctx, db)
			}
		}
	}()
}

func purgeExpiredCodes(ctx context.Context, db database.DBTX) {
	tag, err := db.Exec(ctx, "DELETE FROM email_codes WHERE expires_at < now()")
	if err != nil {
		slog.Error("code cleanup: delete failed", "error", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info("code cleanup: removed expired codes", "count", n)
	}
}
