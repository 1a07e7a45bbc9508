// Package server sets up the HTTP server and registers API routes for
// go-contractpack.
//
// RegisterRoutes returns an http.Handler with all API endpoints for package
// management, template uploads, jurisdiction mappings and assembly jobs.
package server

import (
	"net"
	"net/http"

	_ "go-contractpack/docs"
	"go-contractpack/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Content-Type", "X-Staff-ID"},
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := handlers.NewAPIHandler(s.Store, s.Resolver, s.Orchestrator, s.cfg.WorkDir, s.logger)

	r.Get("/health", h.Health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/packages", func(pkg chi.Router) {
			pkg.Post("/", h.CreatePackage)
			pkg.Get("/", h.ListPackages)
			pkg.Get("/{packageID}", h.GetPackage)
			pkg.Put("/{packageID}", h.UpdatePackage)
			pkg.Put("/{packageID}/countersign", h.UploadCountersign)
			pkg.Post("/{packageID}/documents/{contractType}", h.UploadDocument)
		})
		api.Get("/documents/{documentID}", h.DownloadDocument)
		api.Route("/jurisdictions", func(j chi.Router) {
			j.Get("/", h.ListMappings)
			j.Put("/{code}", h.UpsertMapping)
			j.Get("/{code}/package", h.ResolveJurisdiction)
		})
		api.Route("/jobs", func(j chi.Router) {
			j.Post("/", h.SubmitJob)
			j.Get("/{jobID}", h.JobStatus)
			j.Get("/{jobID}/package", h.DownloadPackage)
		})
	})

	return r
}
