package model

import "errors"

// Pipeline error taxonomy. Step failures wrap one of these sentinels so
// callers can classify with errors.Is while keeping the human-readable
// message for the job record.
var (
	// ErrNoApplicablePackage: the jurisdiction resolves to nothing and no
	// default package exists. The job never starts.
	ErrNoApplicablePackage = errors.New("no applicable contract package")

	// ErrIncompletePackage: a required contract type is missing from an
	// otherwise-resolved package. Caught before job submission.
	ErrIncompletePackage = errors.New("contract package is incomplete")

	// ErrSignatureDecode: malformed signature image payload. Fails the
	// enclosing document fill, which fails the job.
	ErrSignatureDecode = errors.New("signature image decode failed")

	// ErrRender: underlying PDF construction failure.
	ErrRender = errors.New("pdf render failed")

	// ErrIntegrityMismatch: stored content hash disagrees with the
	// recomputed hash. Reads fail closed; never auto-repaired.
	ErrIntegrityMismatch = errors.New("content hash mismatch")

	// ErrJobNotFound: unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotReady: the job exists but has not completed, so there are
	// no package bytes to serve yet. Distinct from a failed job.
	ErrJobNotReady = errors.New("job not ready")

	// ErrNotFound: a referenced entity (package, mapping, document) does
	// not exist.
	ErrNotFound = errors.New("not found")
)
