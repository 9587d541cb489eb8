package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/httputil"
	"github.com/vsslab/vss/internal/ratelimit"
	"github.com/vsslab/vss/internal/report"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/video"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB             database.DBTX
	Pinger         Pinger
	Storage        video.ObjectStorage
	VIA            video.VIA
	Prompts        video.Prompter
	CodeSender     auth.CodeSender
	JWTSecret      string
	BaseURL        string
	MaxUploadBytes int64
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For for rate limiting. Without
	// them every client is keyed on its peer address.
	TrustedProxies ratelimit.Proxies
	FFmpegPath     string
	FFprobePath    string
}

type Server struct {
	router        chi.Router
	pinger        Pinger
	authHandler   *auth.Handler
	videoHandler  *video.Handler
	reportHandler *report.Handler
	proxies       ratelimit.Proxies
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s := &Server{router: r, pinger: cfg.Pinger, proxies: cfg.TrustedProxies}

	if cfg.DB != nil {
		if cfg.JWTSecret == "" {
			slog.Error("server: jwt secret is required when a database is configured")
			panic("server: empty JWT secret")
		}

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8001"
		}

		s.authHandler = auth.NewHandler(cfg.DB, cfg.JWTSecret, cfg.CodeSender)
		s.videoHandler = video.NewHandler(cfg.DB, cfg.Storage, cfg.VIA, cfg.Prompts, baseURL, cfg.MaxUploadBytes)
		s.videoHandler.SetFFmpeg(orDefault(cfg.FFmpegPath, "ffmpeg"), orDefault(cfg.FFprobePath, "ffprobe"))
		s.reportHandler = report.NewHandler(cfg.DB)
	}

	s.routes()
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)

	if s.authHandler == nil {
		return
	}

	authLimiter := ratelimit.NewLimiter(0.5, 5, ratelimit.WithTrustedProxies(s.proxies))
	s.router.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.authHandler.Login)
		r.Post("/register", s.authHandler.Register)
		r.Post("/send-verification-code", s.authHandler.SendVerificationCode)
		r.Post("/verify-email-code", s.authHandler.VerifyEmailCode)
		r.Post("/send-reset-password-code", s.authHandler.SendResetPasswordCode)
		r.Post("/verify-reset-password-code", s.authHandler.VerifyResetPasswordCode)
		r.Post("/reset-password", s.authHandler.ResetPassword)
	})

	apiLimiter := ratelimit.NewLimiter(5, 20, ratelimit.WithTrustedProxies(s.proxies))
	s.router.Group(func(r chi.Router) {
		r.Use(apiLimiter.Middleware)
		r.Use(s.authHandler.Middleware)

		r.Get("/user/{id}", s.authHandler.GetUser)
		r.Put("/user/{id}/email", s.authHandler.UpdateEmail)

		r.Post("/upload-video", s.videoHandler.Upload)
		r.Get("/videos", s.videoHandler.List)
		r.Delete("/videos/{id}", s.videoHandler.Delete)
		r.Get("/video-files/{id}", s.videoHandler.ServeFile)

		r.Post("/vss-summarize", s.videoHandler.Summarize)
		r.Post("/vss-query", s.videoHandler.Query)
		r.Get("/get-recommended-chunk-size", s.videoHandler.RecommendedChunkSize)

		r.Post("/generate-clips", s.videoHandler.GenerateClips)
		r.Post("/delete-clips", s.videoHandler.DeleteClips)
		r.Post("/remove-media", s.videoHandler.RemoveMedia)
		r.Get("/clips/{userID}/{name}", s.videoHandler.ServeClip)

		r.Post("/save-summary", s.videoHandler.SaveSummary)
		r.Get("/summaries", s.videoHandler.ListSummaries)
		r.Get("/summaries/{videoID}", s.videoHandler.GetSummary)
		r.Delete("/summaries", s.videoHandler.DeleteSummaries)

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", s.reportHandler.Create)
			r.Get("/", s.reportHandler.List)
			r.Get("/{id}", s.reportHandler.Get)
			r.Delete("/{id}", s.reportHandler.Delete)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
