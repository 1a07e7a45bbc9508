// Package main API.
//
// go-contractpack provides a REST API for assembling signed contract
// packages: state-specific template resolution, signature overlay,
// certificate generation and integrity-verified delivery.
//
//	Schemes: http
//	BasePath: /
//	Version: 1.0.0
//	Host: localhost:8080
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- application/pdf
//
// swagger:meta
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-contractpack/internal/config"
	"go-contractpack/internal/jobs"
	"go-contractpack/internal/server"
	"go-contractpack/internal/store"
)

func gracefulShutdown(apiServer *http.Server, cancelWorkers context.CancelFunc, done chan bool, logger *slog.Logger, workDir string) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// Stop the assembly workers first; in-flight jobs fail fast and can be
	// resubmitted.
	cancelWorkers()

	// The server has 5 seconds to finish the request it is currently handling.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	// Sweep any workspaces left by interrupted jobs.
	jobs.CleanupStale(workDir, 0)

	logger.Info("server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("starting go-contractpack", slog.Int("port", cfg.Port))

	if err := store.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Error("database migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	queue := jobs.NewRedisQueue(redis.NewClient(redisOpts), cfg.JobsQueue)
	if err := queue.Ping(ctx); err != nil {
		logger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	st := store.NewPostgres(pool)
	srv, err := server.New(cfg, st, queue, logger)
	if err != nil {
		logger.Error("server setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Recover from a previous crash before accepting work: processing rows
	// lost their queue entry, so fail them; stale workspaces just get swept.
	if n, err := st.FailInterruptedJobs(ctx, "interrupted by service restart"); err != nil {
		logger.Error("failed to recover interrupted jobs", slog.String("error", err.Error()))
		os.Exit(1)
	} else if n > 0 {
		logger.Warn("failed interrupted assembly jobs", slog.Int64("count", n))
	}
	jobs.CleanupStale(cfg.WorkDir, 0)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	srv.StartWorker(workerCtx, 2)

	apiServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, cancelWorkers, done, logger, cfg.WorkDir)

	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-done
	logger.Info("graceful shutdown complete")
}
