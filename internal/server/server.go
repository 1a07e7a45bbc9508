// Package server provides the HTTP server setup for go-contractpack.
//
// New wires the store, resolver, certificate generator and job orchestrator
// together; HTTPServer returns the configured http.Server and StartWorker
// launches the background assembly worker.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go-contractpack/internal/cert"
	"go-contractpack/internal/config"
	"go-contractpack/internal/jobs"
	"go-contractpack/internal/resolver"
	"go-contractpack/internal/store"
)

type Server struct {
	cfg          *config.Config
	Store        store.Store
	Resolver     *resolver.Resolver
	Orchestrator *jobs.Orchestrator
	logger       *slog.Logger
}

// New builds the service around any Store and Queue implementation: pgx +
// Redis in production, in-memory variants in tests.
func New(cfg *config.Config, st store.Store, queue jobs.Queue, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir %s: %w", cfg.WorkDir, err)
	}

	res := resolver.New(st)
	certs := cert.New(cert.Company{
		Name:          cfg.CompanyName,
		VerifyURLBase: cfg.VerifyURLBase,
	})
	orch := jobs.NewOrchestrator(st, res, queue, certs, cfg.WorkDir, logger)

	return &Server{
		cfg:          cfg,
		Store:        st,
		Resolver:     res,
		Orchestrator: orch,
		logger:       logger,
	}, nil
}

// StartWorker launches the assembly worker goroutines. Jobs for different
// enrollments are independent, so two workers may process in parallel.
func (s *Server) StartWorker(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go s.Orchestrator.Run(ctx)
	}

	// Periodically sweep workspaces orphaned by a crash mid-job.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jobs.CleanupStale(s.cfg.WorkDir, time.Hour)
			}
		}
	}()
}

// HTTPServer returns the configured http.Server. Write timeout is generous:
// package downloads can be multi-megabyte blobs.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}
