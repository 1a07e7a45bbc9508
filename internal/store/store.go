// Package store persists package definitions, jurisdiction mappings,
// document templates and assembled-package records. PDF content is stored
// as opaque byte blobs next to its SHA-256 hash; the hash is never
// recomputed or repaired by the store itself.
//
// Two implementations exist: Postgres (production) and Memory (tests and
// single-process development).
package store

import (
	"context"
	"time"

	"go-contractpack/internal/model"
)

// Store is the persistence contract the handlers, resolver and job
// orchestrator work against.
type Store interface {
	CreatePackage(ctx context.Context, p *model.PackageDefinition) error
	UpdatePackage(ctx context.Context, p *model.PackageDefinition) error
	GetPackage(ctx context.Context, id string) (*model.PackageDefinition, error)
	ListPackages(ctx context.Context) ([]model.PackageDefinition, error)
	// DefaultPackage returns the package flagged is_default, or
	// model.ErrNotFound when none is.
	DefaultPackage(ctx context.Context) (*model.PackageDefinition, error)
	SetCountersignImage(ctx context.Context, id string, png []byte) error

	UpsertMapping(ctx context.Context, code, packageID string) error
	// GetMapping returns the package id mapped to the jurisdiction code,
	// or model.ErrNotFound when the code is unmapped.
	GetMapping(ctx context.Context, code string) (string, error)
	ListMappings(ctx context.Context) ([]model.JurisdictionMapping, error)

	// PutDocument inserts or replaces the template for the document's
	// (package, contract type) pair.
	PutDocument(ctx context.Context, d *model.DocumentTemplate) error
	GetDocument(ctx context.Context, id string) (*model.DocumentTemplate, error)
	GetDocumentByType(ctx context.Context, packageID string, t model.ContractType) (*model.DocumentTemplate, error)
	ListDocuments(ctx context.Context, packageID string) ([]model.DocumentTemplate, error)

	// CreateJob persists a new assembled-package record in status pending
	// together with the raw submission payload the worker will replay.
	CreateJob(ctx context.Context, j *model.AssembledPackage, inputs []byte) error
	GetJob(ctx context.Context, id string) (*model.AssembledPackage, error)
	GetJobInputs(ctx context.Context, id string) ([]byte, error)
	MarkJobProcessing(ctx context.Context, id string) error
	CompleteJob(ctx context.Context, id string, pdfBytes []byte, pageCount int, hash, certificateID string, completedAt time.Time) error
	FailJob(ctx context.Context, id, message string) error
	// FailInterruptedJobs marks every record stuck in processing as failed.
	// Run at startup: a crash mid-job already consumed the queue entry, so
	// nothing will ever finish those records.
	FailInterruptedJobs(ctx context.Context, message string) (int64, error)
}
