// Package jobs runs contract package assembly asynchronously. A submission
// persists a pending assembled-package record and enqueues the job id; the
// background worker drives the record through the only legal transitions:
//
//	pending -> processing -> completed | failed
//
// Terminal records are never reopened and never retried automatically — a
// fresh submission creates a new record. Assembly routinely takes tens of
// seconds, so the submitting request only ever observes completion through
// the status poll.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-contractpack/internal/assembler"
	"go-contractpack/internal/cert"
	"go-contractpack/internal/fill"
	"go-contractpack/internal/integrity"
	"go-contractpack/internal/model"
	"go-contractpack/internal/resolver"
	"go-contractpack/internal/store"
	"go-contractpack/internal/utils"
)

// securityMethod is the description stamped onto every certificate.
const securityMethod = "SHA-256 content hashing with server-side signature capture audit"

// SubmitRequest is the payload that starts one assembly job. Either
// PackageID or Jurisdiction must be set; with both present PackageID wins.
type SubmitRequest struct {
	PackageID    string                                  `json:"package_id,omitempty"`
	Jurisdiction string                                  `json:"jurisdiction,omitempty"`
	Fields       map[model.ContractType]map[string]string `json:"fields,omitempty"`
	Events       []model.SigningEvent                    `json:"events"`
	SubmittedBy  string                                  `json:"submitted_by,omitempty"`
}

// jobInputs is what gets persisted with the pending record and replayed by
// the worker. The package id is pinned at submit time so a later mapping
// change cannot redirect an in-flight job.
type jobInputs struct {
	PackageID   string                                  `json:"package_id"`
	Fields      map[model.ContractType]map[string]string `json:"fields,omitempty"`
	Events      []model.SigningEvent                    `json:"events"`
	SubmittedBy string                                  `json:"submitted_by,omitempty"`
}

// Orchestrator owns the job lifecycle.
type Orchestrator struct {
	store    store.Store
	resolver *resolver.Resolver
	queue    Queue
	certs    *cert.Generator
	workDir  string
	logger   *slog.Logger
}

func NewOrchestrator(s store.Store, r *resolver.Resolver, q Queue, g *cert.Generator, workDir string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    s,
		resolver: r,
		queue:    q,
		certs:    g,
		workDir:  workDir,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Submit gates the request, persists a pending record and enqueues it.
// Resolution and completeness failures surface to the caller and the job
// never starts; no PDF work happens here.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*model.AssembledPackage, error) {
	pkg, err := o.resolvePackage(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := o.resolver.CheckComplete(ctx, pkg.ID); err != nil {
		return nil, err
	}

	inputs, err := json.Marshal(jobInputs{
		PackageID:   pkg.ID,
		Fields:      req.Fields,
		Events:      req.Events,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("encode job inputs: %w", err)
	}

	job := &model.AssembledPackage{
		ID:          utils.GenerateUUID(),
		TrackingID:  "PKG-" + utils.UppercaseToken(10),
		Status:      model.StatusPending,
		SubmittedBy: req.SubmittedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.store.CreateJob(ctx, job, inputs); err != nil {
		return nil, fmt.Errorf("persist job record: %w", err)
	}
	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		// The record exists but no worker will pick it up; fail it so the
		// poller sees a terminal state instead of pending forever.
		msg := fmt.Sprintf("enqueue failed: %v", err)
		if ferr := o.store.FailJob(ctx, job.ID, msg); ferr != nil {
			o.logger.Error("failed to mark unqueued job failed",
				slog.String("job_id", job.ID), slog.String("error", ferr.Error()))
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	o.logger.Info("assembly job submitted",
		slog.String("job_id", job.ID),
		slog.String("tracking_id", job.TrackingID),
		slog.String("package_id", pkg.ID),
	)
	return job, nil
}

func (o *Orchestrator) resolvePackage(ctx context.Context, req SubmitRequest) (*model.PackageDefinition, error) {
	if req.PackageID != "" {
		pkg, err := o.store.GetPackage(ctx, req.PackageID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: package %s does not exist", model.ErrNoApplicablePackage, req.PackageID)
		}
		return pkg, err
	}
	if strings.TrimSpace(req.Jurisdiction) == "" {
		return nil, fmt.Errorf("%w: neither package_id nor jurisdiction supplied", model.ErrNoApplicablePackage)
	}
	return o.resolver.Resolve(ctx, req.Jurisdiction)
}

// Status returns the job record without blob content. Side-effect free and
// idempotent: a terminal job always reports identical data.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*model.AssembledPackage, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Bytes = nil
	return job, nil
}

// Run consumes the queue until ctx is done. Start one goroutine per worker.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("assembly worker started")
	for {
		jobID, err := o.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Info("assembly worker stopping")
				return
			}
			o.logger.Error("dequeue failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}
		o.Process(ctx, jobID)
	}
}

// Process runs one job to a terminal state. Any step failure fails the job
// with a human-readable message; nothing is retried.
func (o *Orchestrator) Process(ctx context.Context, jobID string) {
	logger := o.logger.With(slog.String("job_id", jobID))

	if err := o.store.MarkJobProcessing(ctx, jobID); err != nil {
		logger.Error("cannot transition job to processing", slog.String("error", err.Error()))
		return
	}

	if err := o.assemble(ctx, jobID); err != nil {
		logger.Error("assembly job failed", slog.String("error", err.Error()))
		// Shutdown cancels ctx mid-job; the terminal write must still land
		// or the record stays in processing with its queue entry consumed.
		if ferr := o.store.FailJob(context.WithoutCancel(ctx), jobID, err.Error()); ferr != nil {
			logger.Error("failed to record job failure", slog.String("error", ferr.Error()))
		}
		return
	}
	logger.Info("assembly job completed")
}

func (o *Orchestrator) assemble(ctx context.Context, jobID string) error {
	raw, err := o.store.GetJobInputs(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job inputs: %w", err)
	}
	var in jobInputs
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode job inputs: %w", err)
	}

	pkg, err := o.store.GetPackage(ctx, in.PackageID)
	if err != nil {
		return fmt.Errorf("load package %s: %w", in.PackageID, err)
	}

	ws, err := NewWorkspace(o.workDir, jobID)
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	// Fill every required document in assembly order.
	var signedPaths []string
	var docHashes []string
	for _, contractType := range model.RequiredContractTypes {
		tmpl, err := o.store.GetDocumentByType(ctx, pkg.ID, contractType)
		if err != nil {
			return fmt.Errorf("load template %s/%s: %w", pkg.ID, contractType, err)
		}
		res, err := fill.Fill(ws.Dir, tmpl, pkg, in.Fields[contractType], in.Events)
		if err != nil {
			return err
		}
		signedPaths = append(signedPaths, res.Path)
		docHashes = append(docHashes, res.SHA256)
	}

	certificate := &model.Certificate{
		ID:             cert.NewCertificateID(),
		GeneratedAt:    time.Now().UTC(),
		SecurityMethod: securityMethod,
		DocumentHash:   combinedHash(docHashes),
		Events:         in.Events,
	}
	certBytes, err := o.certs.Generate(certificate)
	if err != nil {
		return err
	}

	result, err := assembler.Assemble(ws.Dir, signedPaths, certBytes)
	if err != nil {
		return err
	}

	if err := o.store.CompleteJob(context.WithoutCancel(ctx), jobID, result.Bytes, result.PageCount,
		result.SHA256, certificate.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist completed package: %w", err)
	}
	return nil
}

// combinedHash derives the certificate's document hash from the per-document
// hashes: one hash line per document, hashed again.
func combinedHash(hashes []string) string {
	return integrity.Hash([]byte(strings.Join(hashes, "\n") + "\n"))
}
