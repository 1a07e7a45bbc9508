// Package config loads service configuration from environment variables.
// A .env file is honored in development via godotenv autoload.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds all configuration for the contract package service.
type Config struct {
	// Port the HTTP server listens on.
	Port int
	// DatabaseURL is the PostgreSQL DSN.
	DatabaseURL string
	// RedisURL is the Redis connection URL for the job queue.
	RedisURL string
	// JobsQueue is the Redis list the orchestrator consumes.
	JobsQueue string
	// WorkDir is where in-flight job files are staged.
	WorkDir string
	// CompanyName brands the generated signature certificates.
	CompanyName string
	// VerifyURLBase is the public certificate verification URL prefix,
	// e.g. https://example.com/verify. The certificate ID is appended.
	VerifyURLBase string
	// LogLevel: debug, info, warn or error.
	LogLevel string
	// LogFormat: text or json.
	LogFormat string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          envOrDefaultInt("PORT", 8080),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		JobsQueue:     envOrDefault("JOBS_QUEUE", "assembly_jobs"),
		WorkDir:       envOrDefault("WORK_DIR", "work"),
		CompanyName:   envOrDefault("COMPANY_NAME", "Contract Services"),
		VerifyURLBase: envOrDefault("VERIFY_URL_BASE", "https://localhost/verify"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		LogFormat:     envOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// SetupLogger builds the process-wide slog logger from the config.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
