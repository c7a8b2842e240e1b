// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct threaded into each
// component at construction, so normalization and validation logic can be
// tested with varied configurations without process-level state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// BaseURL is the externally visible URL of this service. Custom image
	// URLs pointing back at it are resolved locally instead of downloaded.
	BaseURL string

	// Asset locations
	TemplatesDir string
	FontsDir     string

	// Watermarking
	DefaultWatermark   string
	WatermarkAllowlist []string

	// External image downloads
	DownloadTimeout time.Duration

	// Rendering
	DefaultWidth  int
	DefaultHeight int
	MaxFrames     int

	// Optional S3-compatible mirror for downloaded template assets.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		BaseURL: envOrDefault("BASE_URL", "http://localhost:8080"),

		TemplatesDir: envOrDefault("TEMPLATES_DIR", "templates"),
		FontsDir:     os.Getenv("FONTS_DIR"),

		DefaultWatermark: envOrDefault("DEFAULT_WATERMARK", "memeforge"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "memeforge-assets"),
	}

	cfg.WatermarkAllowlist = splitList(envOrDefault("WATERMARK_ALLOWLIST", cfg.DefaultWatermark))

	var err error
	if cfg.DownloadTimeout, err = envDuration("DOWNLOAD_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DefaultWidth, err = envInt("DEFAULT_WIDTH", 600); err != nil {
		return nil, err
	}
	if cfg.DefaultHeight, err = envInt("DEFAULT_HEIGHT", 600); err != nil {
		return nil, err
	}
	if cfg.MaxFrames, err = envInt("MAX_FRAMES", 20); err != nil {
		return nil, err
	}

	if cfg.Env == "production" && strings.HasPrefix(cfg.BaseURL, "http://localhost") {
		return nil, fmt.Errorf("BASE_URL must be set in production")
	}

	return cfg, nil
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
// In development, template directories may be materialized on demand and
// cached external images are always re-validated.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// WatermarkAllowed reports whether the given watermark token is in the
// allow-list. The default watermark is always allowed.
func (c *Config) WatermarkAllowed(token string) bool {
	if token == c.DefaultWatermark {
		return true
	}
	for _, w := range c.WatermarkAllowlist {
		if w == token {
			return true
		}
	}
	return false
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
