// Package main is the entry point for the memeforge server. It loads
// configuration, builds the rendering pipeline, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memeforge/internal/config"
	"memeforge/internal/fonts"
	"memeforge/internal/handlers"
	"memeforge/internal/middleware"
	"memeforge/internal/normalize"
	"memeforge/internal/render"
	"memeforge/internal/router"
	"memeforge/internal/storage"
	"memeforge/internal/style"
	"memeforge/internal/template"
)

func main() {
	// Structured logger — debug level so request logs are visible everywhere.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"templates", cfg.TemplatesDir,
	)

	// Build the font catalog: embedded faces plus any TTF files on disk.
	catalog, err := fonts.New(cfg.FontsDir)
	if err != nil {
		slog.Error("failed to load fonts", "error", err)
		os.Exit(1)
	}
	slog.Info("fonts loaded", "ids", catalog.IDs())

	// Connect the S3-compatible asset mirror (optional — the app works with
	// a purely local cache).
	mirror, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize asset mirror", "error", err)
		os.Exit(1)
	}
	if mirror != nil {
		slog.Info("asset mirror connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("asset mirror not configured — downloads cache locally only")
	}

	// Build the pipeline: templates, styles, normalization, rendering.
	repo := template.NewRepository(cfg, mirror)
	styles := style.NewResolver(repo)
	normalizer := normalize.New(cfg, catalog)
	engine := render.NewEngine(cfg, catalog)

	imageHandlers := handlers.NewImages(cfg, repo, styles, normalizer, engine)
	templateHandlers := handlers.NewTemplates(cfg, repo)

	// Per-IP rate limiting guards the CPU-bound render path.
	limiter := middleware.NewRateLimiter(10, 30)
	defer limiter.Stop()

	r := router.New(imageHandlers, templateHandlers, limiter)

	// WriteTimeout must accommodate animated renders plus an external
	// background download on a cold cache.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
