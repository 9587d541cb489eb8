package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vsslab/vss/internal/auth"
	"github.com/vsslab/vss/internal/config"
	"github.com/vsslab/vss/internal/database"
	"github.com/vsslab/vss/internal/email"
	"github.com/vsslab/vss/internal/llm"
	"github.com/vsslab/vss/internal/ratelimit"
	"github.com/vsslab/vss/internal/server"
	"github.com/vsslab/vss/internal/storage"
	"github.com/vsslab/vss/internal/via"
	"github.com/vsslab/vss/internal/video"
)

func main() {
	if err := run(); err != nil {
		slog.Error("vss-api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer(os.Getenv("VSS_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	proxies, err := ratelimit.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	slog.Info("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3.Endpoint,
		PublicEndpoint: cfg.S3.PublicEndpoint,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		Region:         cfg.S3.Region,
	})
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("storage bucket check failed: %w", err)
	}
	slog.Info("storage bucket ready", "bucket", cfg.S3.Bucket)

	emailClient := email.New(email.Config{
		BaseURL:    cfg.Listmonk.URL,
		Username:   cfg.Listmonk.User,
		Password:   cfg.Listmonk.Password,
		TemplateID: cfg.Listmonk.TemplateID,
		Allowlist:  email.ParseAllowlist(cfg.Listmonk.Allowlist),
	})

	viaClient := via.New(cfg.VIA.ServerURL, cfg.VIA.Model)
	llmClient := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	slog.Info("upstreams configured", "via", cfg.VIA.ServerURL, "llm", cfg.LLM.BaseURL, "llm_model", cfg.LLM.Model)

	srv := server.New(server.Config{
		DB:             db.Pool,
		Pinger:         db,
		Storage:        store,
		VIA:            viaClient,
		Prompts:        llmClient,
		CodeSender:     emailClient,
		JWTSecret:      cfg.JWTSecret,
		BaseURL:        cfg.BaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: proxies,
		FFmpegPath:     cfg.FFmpegPath,
		FFprobePath:    cfg.FFprobePath,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	auth.StartCodeCleanupLoop(workerCtx, db.Pool, auth.CodeTTL)
	video.StartClipCleanupLoop(workerCtx, store, cfg.Clips.CleanupInterval, cfg.Clips.MaxAge)

	// Summaries and clip generation wait on VIA for minutes, so writes get
	// a generous timeout.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("vss-api listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-shutdownCh:
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func newLogger(levelName string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
