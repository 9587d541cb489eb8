package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const userIDKey contextKey = "userID"

// CodeSender delivers one-time verification codes.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, toEmail, code, purpose string) error
}

type Handler struct {
	db        database.DBTX
	jwtSecret string
	codes     CodeSender
}

func NewHandler(db database.DBTX, jwtSecret string, codes CodeSender) *Handler {
	return &Handler{db: db, jwtSecret: jwtSecret, codes: codes}
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
}

type registerRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "id and password are required")
		return
	}

	var hashedPassword string
	err := h.db.QueryRow(r.Context(),
		"SELECT password FROM users WHERE id = $1", req.ID,
	).Scan(&hashedPassword)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid id or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid id or password")
		return
	}

	token, err := GenerateAccessToken(h.jwtSecret, req.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "login successful",
		Token:   token,
		UserID:  req.ID,
	})
}

// Register creates an account for an e-mail address that passed
// verification within the code's lifetime.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Email = strings.TrimSpace(req.Email)
	if req.ID == "" || req.Password == "" || req.Email == "" {
		httputil.WriteError(w, http.StatusBadRequest, "id, password, and email are required")
		return
	}
	for _, msg := range []string{validate.UserID(req.ID), validate.Password(req.Password), validate.Email(req.Email)} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	verified, err := h.codeVerified(r.Context(), req.Email, purposeRegister, req.Code)
	if err != nil {
		slog.Error("register: code lookup failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if !verified {
		httputil.WriteError(w, http.StatusBadRequest, "email has not been verified")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	_, err = h.db.Exec(r.Context(),
		"INSERT INTO users (id, password, email) VALUES ($1, $2, $3)",
		req.ID, string(hashedPassword), req.Email,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusConflict, "id or email already in use")
			return
		}
		slog.Error("register: insert failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.consumeCodes(r.Context(), req.Email, purposeRegister)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Ack{Success: true, Message: "registration complete"})
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := ValidateToken(h.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.TokenType != tokenTypeAccess {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token type")
			return
		}

		// A user_id query value must name the token's owner.
		if q := r.URL.Query().Get("user_id"); q != "" && q != claims.UserID {
			httputil.WriteError(w, http.StatusForbidden, "user_id does not match token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// ContextWithUserID is used by tests of handlers behind Middleware.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
