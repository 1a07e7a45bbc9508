// Package handlers provides the HTTP handlers for the contract package
// API: package definition management, template uploads, jurisdiction
// mappings, job submission/polling and integrity-gated downloads.
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-contractpack/internal/integrity"
	"go-contractpack/internal/jobs"
	"go-contractpack/internal/model"
	"go-contractpack/internal/pdf"
	"go-contractpack/internal/resolver"
	"go-contractpack/internal/store"
	"go-contractpack/internal/utils"
)

type APIHandler struct {
	Store        store.Store
	Resolver     *resolver.Resolver
	Orchestrator *jobs.Orchestrator
	WorkDir      string
	Logger       *slog.Logger
}

func NewAPIHandler(s store.Store, r *resolver.Resolver, o *jobs.Orchestrator, workDir string, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		Store:        s,
		Resolver:     r,
		Orchestrator: o,
		WorkDir:      workDir,
		Logger:       logger.With(slog.String("component", "api")),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline errors onto HTTP statuses. Integrity mismatches
// always come back as a plain server error: the details stay in the log,
// not on the wire.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrIntegrityMismatch):
		h.Logger.Error("integrity check failed on read", slog.String("error", err.Error()))
		http.Error(w, "stored content failed integrity verification", http.StatusInternalServerError)
	case errors.Is(err, model.ErrJobNotFound), errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrJobNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrNoApplicablePackage),
		errors.Is(err, model.ErrIncompletePackage),
		errors.Is(err, model.ErrSignatureDecode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.Logger.Error("request failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// staffID returns the opaque staff identity attached by the (excluded)
// auth layer. Audit metadata only.
func staffID(r *http.Request) string {
	return r.Header.Get("X-Staff-ID")
}

// CreatePackage godoc
// @Summary      Create a contract package definition
// @Description  Creates a named bundle of contract document templates
// @Tags         packages
// @Accept       json
// @Produce      json
// @Param        package  body  object  true  "{ name, is_default, cancellation_days, signing_client_id }"
// @Success      201  {object}  model.PackageDefinition
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/packages [post]
func (h *APIHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		IsDefault        bool   `json:"is_default"`
		CancellationDays int    `json:"cancellation_days"`
		SigningClientID  string `json:"signing_client_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Package name is required", http.StatusBadRequest)
		return
	}
	if req.CancellationDays <= 0 {
		req.CancellationDays = 3
	}

	now := time.Now().UTC()
	pkg := &model.PackageDefinition{
		ID:               utils.GenerateUUID(),
		Name:             req.Name,
		IsDefault:        req.IsDefault,
		CancellationDays: req.CancellationDays,
		SigningClientID:  req.SigningClientID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.Store.CreatePackage(r.Context(), pkg); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

// UpdatePackage godoc
// @Summary      Update a package definition
// @Description  Edits name, default flag, cancellation window and signing client; templates and the countersign image are untouched
// @Tags         packages
// @Accept       json
// @Produce      json
// @Param        packageID  path  string  true  "Package ID"
// @Param        package    body  object  true  "{ name, is_default, cancellation_days, signing_client_id }"
// @Success      200  {object}  model.PackageDefinition
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Package not found"
// @Router       /api/packages/{packageID} [put]
func (h *APIHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	pkg, err := h.Store.GetPackage(r.Context(), packageID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Name             string `json:"name"`
		IsDefault        bool   `json:"is_default"`
		CancellationDays int    `json:"cancellation_days"`
		SigningClientID  string `json:"signing_client_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Package name is required", http.StatusBadRequest)
		return
	}
	if req.CancellationDays <= 0 {
		req.CancellationDays = pkg.CancellationDays
	}

	pkg.Name = req.Name
	pkg.IsDefault = req.IsDefault
	pkg.CancellationDays = req.CancellationDays
	pkg.SigningClientID = req.SigningClientID
	pkg.UpdatedAt = time.Now().UTC()
	if err := h.Store.UpdatePackage(r.Context(), pkg); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// ListPackages godoc
// @Summary      List contract package definitions
// @Tags         packages
// @Produce      json
// @Success      200  {array}  model.PackageDefinition
// @Router       /api/packages [get]
func (h *APIHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.Store.ListPackages(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

// GetPackage godoc
// @Summary      Get one package definition with its documents
// @Tags         packages
// @Produce      json
// @Param        packageID  path  string  true  "Package ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {string}  string  "Package not found"
// @Router       /api/packages/{packageID} [get]
func (h *APIHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	pkg, err := h.Store.GetPackage(r.Context(), packageID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	docs, err := h.Store.ListDocuments(r.Context(), packageID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"package":   pkg,
		"documents": docs,
		"complete":  h.Resolver.CheckComplete(r.Context(), packageID) == nil,
	})
}

// UploadCountersign godoc
// @Summary      Upload the company countersignature image
// @Description  Stores the PNG stamped onto countersign placements when no countersign event is supplied
// @Tags         packages
// @Accept       multipart/form-data
// @Produce      json
// @Param        packageID  path      string  true  "Package ID"
// @Param        image      formData  file    true  "Countersignature image (PNG)"
// @Success      200  {object}  map[string]interface{}  "{ size: int }"
// @Failure      400  {string}  string  "Bad request - invalid image format"
// @Failure      404  {string}  string  "Package not found"
// @Router       /api/packages/{packageID}/countersign [put]
func (h *APIHandler) UploadCountersign(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")

	const maxUploadSize = 5 * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Error retrieving file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}
	if http.DetectContentType(header[:n]) != "image/png" {
		http.Error(w, "Only PNG images are allowed", http.StatusBadRequest)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "Failed to process file", http.StatusInternalServerError)
		return
	}

	png, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}
	if err := h.Store.SetCountersignImage(r.Context(), packageID, png); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"size": len(png)})
}

// UploadDocument godoc
// @Summary      Upload a contract document template
// @Description  Uploads the base PDF for one (package, contract type) pair with its signature placement metadata
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        packageID     path      string  true  "Package ID"
// @Param        contractType  path      string  true  "croa_disclosure | client_agreement | notice_of_cancellation"
// @Param        pdf           formData  file    true  "Base contract PDF"
// @Param        placements    formData  string  true  "Signature placement JSON array"
// @Param        fields        formData  string  false "Autofill field placement JSON array"
// @Success      201  {object}  model.DocumentTemplate
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Package not found"
// @Router       /api/packages/{packageID}/documents/{contractType} [post]
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	contractType := model.ContractType(chi.URLParam(r, "contractType"))
	if !model.ValidContractType(contractType) {
		http.Error(w, fmt.Sprintf("Unknown contract type %q", contractType), http.StatusBadRequest)
		return
	}
	if _, err := h.Store.GetPackage(r.Context(), packageID); err != nil {
		h.writeError(w, err)
		return
	}

	const maxUploadSize = 25 * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("pdf")
	if err != nil {
		http.Error(w, "Error retrieving file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// ReadFull: a chunked body may short-read a plain Read even when five
	// bytes are coming. Too few bytes at all means not a PDF.
	header := make([]byte, 5)
	if _, err := io.ReadFull(file, header); err != nil {
		http.Error(w, "Uploaded file is not a valid PDF", http.StatusBadRequest)
		return
	}
	if string(header) != "%PDF-" {
		http.Error(w, "Uploaded file is not a valid PDF", http.StatusBadRequest)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "Failed to process file", http.StatusInternalServerError)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	var placements []model.SignaturePlacement
	if err := json.Unmarshal([]byte(r.FormValue("placements")), &placements); err != nil {
		http.Error(w, "Invalid placements JSON", http.StatusBadRequest)
		return
	}
	var fields []model.FieldPlacement
	if fv := r.FormValue("fields"); fv != "" {
		if err := json.Unmarshal([]byte(fv), &fields); err != nil {
			http.Error(w, "Invalid fields JSON", http.StatusBadRequest)
			return
		}
	}

	// Placement metadata is validated eagerly, against the actual page
	// geometry of the uploaded PDF, so a bad rectangle fails here and not
	// mid-assembly.
	if err := h.validatePlacements(content, placements, fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc := &model.DocumentTemplate{
		ID:           utils.GenerateUUID(),
		PackageID:    packageID,
		ContractType: contractType,
		Filename:     utils.SanitizeFilename(handler.Filename),
		Size:         int64(len(content)),
		MIMEType:     "application/pdf",
		SHA256:       integrity.Hash(content),
		Placements:   placements,
		Fields:       fields,
		Bytes:        content,
		UploadedBy:   staffID(r),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.PutDocument(r.Context(), doc); err != nil {
		h.writeError(w, err)
		return
	}

	doc.Bytes = nil
	writeJSON(w, http.StatusCreated, doc)
}

// validatePlacements stages the uploaded PDF and checks every placement and
// field against its real page dimensions.
func (h *APIHandler) validatePlacements(content []byte, placements []model.SignaturePlacement, fields []model.FieldPlacement) error {
	tmpPath := filepath.Join(h.WorkDir, "upload-"+utils.GenerateUUID()+".pdf")
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to stage upload: %w", err)
	}
	defer os.Remove(tmpPath)

	if err := pdf.Validate(tmpPath); err != nil {
		return fmt.Errorf("uploaded PDF failed validation: %w", err)
	}
	dims, err := pdf.PageDims(tmpPath)
	if err != nil {
		return err
	}
	pageCount := len(dims)

	for _, p := range placements {
		if err := p.Validate(); err != nil {
			return err
		}
		page := p.Page
		if p.LastPage {
			page = pageCount
		}
		if page > pageCount {
			return fmt.Errorf("placement %q targets page %d but the document has %d pages", p.Label, page, pageCount)
		}
		d := dims[page-1]
		if p.Rect.X2 > d.Width || p.Rect.Y2 > d.Height {
			return fmt.Errorf("placement %q rectangle exceeds page %d bounds (%.0fx%.0f points)", p.Label, page, d.Width, d.Height)
		}
	}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if f.Page > pageCount {
			return fmt.Errorf("field %q targets page %d but the document has %d pages", f.Name, f.Page, pageCount)
		}
	}
	return nil
}

// DownloadDocument godoc
// @Summary      Download a stored contract template
// @Description  Serves the stored PDF after re-verifying its content hash
// @Tags         documents
// @Produce      application/pdf
// @Param        documentID  path  string  true  "Document ID"
// @Success      200  {file}  file  "PDF"
// @Failure      404  {string}  string  "Document not found"
// @Failure      500  {string}  string  "Integrity verification failed"
// @Router       /api/documents/{documentID} [get]
func (h *APIHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	doc, err := h.Store.GetDocument(r.Context(), documentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := integrity.Check(doc.Bytes, doc.SHA256, "document "+doc.ID); err != nil {
		h.writeError(w, err)
		return
	}
	servePDF(w, doc.Bytes, doc.Filename, r.URL.Query().Get("download") == "1")
}

// UpsertMapping godoc
// @Summary      Map a jurisdiction to a package
// @Tags         jurisdictions
// @Accept       json
// @Produce      json
// @Param        code     path  string  true  "Two-letter jurisdiction code"
// @Param        mapping  body  object  true  "{ package_id: string }"
// @Success      200  {object}  model.JurisdictionMapping
// @Failure      404  {string}  string  "Package not found"
// @Router       /api/jurisdictions/{code} [put]
func (h *APIHandler) UpsertMapping(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	var req struct {
		PackageID string `json:"package_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PackageID == "" {
		http.Error(w, "package_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.Store.GetPackage(r.Context(), req.PackageID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Store.UpsertMapping(r.Context(), code, req.PackageID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.JurisdictionMapping{Code: code, PackageID: req.PackageID})
}

// ListMappings godoc
// @Summary      List jurisdiction mappings
// @Tags         jurisdictions
// @Produce      json
// @Success      200  {array}  model.JurisdictionMapping
// @Router       /api/jurisdictions [get]
func (h *APIHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.Store.ListMappings(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappings)
}

// ResolveJurisdiction godoc
// @Summary      Resolve the package applicable to a jurisdiction
// @Description  Exact mapping first, then the default package
// @Tags         jurisdictions
// @Produce      json
// @Param        code  path  string  true  "Two-letter jurisdiction code"
// @Success      200  {object}  model.PackageDefinition
// @Failure      400  {string}  string  "No applicable package"
// @Router       /api/jurisdictions/{code}/package [get]
func (h *APIHandler) ResolveJurisdiction(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.Resolver.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// SubmitJob godoc
// @Summary      Submit a contract package assembly job
// @Description  Gates package completeness, persists a pending job and returns ids for polling
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        request  body  jobs.SubmitRequest  true  "Submission"
// @Success      202  {object}  map[string]string  "{ job_id, tracking_id }"
// @Failure      400  {string}  string  "Incomplete package or no applicable package"
// @Router       /api/jobs [post]
func (h *APIHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobs.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.SubmittedBy = staffID(r)

	job, err := h.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.ID,
		"tracking_id": job.TrackingID,
	})
}

// JobStatus godoc
// @Summary      Poll the status of an assembly job
// @Description  Idempotent and side-effect free; terminal jobs always return identical data
// @Tags         jobs
// @Produce      json
// @Param        jobID  path  string  true  "Job ID"
// @Success      200  {object}  model.AssembledPackage
// @Failure      404  {string}  string  "Job not found"
// @Router       /api/jobs/{jobID} [get]
func (h *APIHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.Orchestrator.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DownloadPackage godoc
// @Summary      Download an assembled package
// @Description  Serves the final PDF of a completed job after re-verifying its content hash
// @Tags         jobs
// @Produce      application/pdf
// @Param        jobID     path   string  true   "Job ID"
// @Param        download  query  string  false  "Set to 1 for attachment disposition"
// @Success      200  {file}  file  "PDF"
// @Failure      404  {string}  string  "Job not found"
// @Failure      409  {string}  string  "Job not completed yet"
// @Failure      500  {string}  string  "Integrity verification failed"
// @Router       /api/jobs/{jobID}/package [get]
func (h *APIHandler) DownloadPackage(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.Store.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if job.Status != model.StatusCompleted {
		h.writeError(w, fmt.Errorf("%w: job %s is %s", model.ErrJobNotReady, jobID, job.Status))
		return
	}
	if err := integrity.Check(job.Bytes, job.SHA256, "package "+job.ID); err != nil {
		h.writeError(w, err)
		return
	}
	servePDF(w, job.Bytes, job.TrackingID+".pdf", r.URL.Query().Get("download") == "1")
}

// servePDF writes binary content headers appropriate to inline viewing or
// attachment download.
func servePDF(w http.ResponseWriter, content []byte, filename string, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	_, _ = w.Write(content)
}

// Health godoc
// @Summary      Service health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
