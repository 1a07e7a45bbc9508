// Package model defines the domain types shared across the contract
// package pipeline: package definitions, document templates, signature
// placements, signing events and assembled packages.
//
// Placement and field metadata is validated at write time so malformed
// page numbers or degenerate rectangles are rejected on upload instead
// of failing deep inside PDF rendering.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ContractType identifies one logical contract document within a package.
type ContractType string

const (
	ContractTypeCROADisclosure       ContractType = "croa_disclosure"
	ContractTypeClientAgreement      ContractType = "client_agreement"
	ContractTypeNoticeOfCancellation ContractType = "notice_of_cancellation"
)

// RequiredContractTypes lists the documents every package must carry before
// a job may be submitted, in assembly order: disclosure first, agreement,
// then the cancellation notice.
var RequiredContractTypes = []ContractType{
	ContractTypeCROADisclosure,
	ContractTypeClientAgreement,
	ContractTypeNoticeOfCancellation,
}

// ValidContractType reports whether t is one of the known contract types.
func ValidContractType(t ContractType) bool {
	for _, r := range RequiredContractTypes {
		if t == r {
			return true
		}
	}
	return false
}

// SignatureRole identifies who a placement expects to sign.
type SignatureRole string

const (
	RoleClient      SignatureRole = "client"
	RoleCountersign SignatureRole = "countersign"
	RoleWitness     SignatureRole = "witness"
	RoleOther       SignatureRole = "other"
)

// ValidSignatureRole reports whether r is a known signature role.
func ValidSignatureRole(r SignatureRole) bool {
	switch r {
	case RoleClient, RoleCountersign, RoleWitness, RoleOther:
		return true
	}
	return false
}

// CaptureMethod describes how a signature was captured.
type CaptureMethod string

const (
	MethodDrawn CaptureMethod = "drawn"
	MethodTyped CaptureMethod = "typed"
)

// Job statuses. A job moves strictly pending -> processing -> completed|failed;
// terminal states are final.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Rect is a rectangle in PDF point space with a bottom-left origin:
// (0,0) is the lower-left page corner and y increases upward.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Validate rejects degenerate or negative rectangles.
func (r Rect) Validate() error {
	if r.X1 < 0 || r.Y1 < 0 {
		return fmt.Errorf("rectangle origin (%.1f,%.1f) is negative", r.X1, r.Y1)
	}
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return fmt.Errorf("rectangle (%.1f,%.1f)-(%.1f,%.1f) has no area", r.X1, r.Y1, r.X2, r.Y2)
	}
	return nil
}

// SignaturePlacement declares where one signature image goes on a template:
// a target page (1-based, or the document's last page) and a rectangle the
// image is stretched to fill exactly.
type SignaturePlacement struct {
	Role     SignatureRole `json:"role"`
	Label    string        `json:"label"`
	Page     int           `json:"page,omitempty"`
	LastPage bool          `json:"last_page,omitempty"`
	Rect     Rect          `json:"rect"`
}

// Validate checks role, page reference and rectangle.
func (p SignaturePlacement) Validate() error {
	if !ValidSignatureRole(p.Role) {
		return fmt.Errorf("unknown signature role %q", p.Role)
	}
	if !p.LastPage && p.Page < 1 {
		return fmt.Errorf("placement %q: page must be >= 1 or last_page", p.Label)
	}
	if err := p.Rect.Validate(); err != nil {
		return fmt.Errorf("placement %q: %w", p.Label, err)
	}
	return nil
}

// FieldPlacement declares where one autofill text value is written.
// Positions are configuration data supplied with the template, not computed.
type FieldPlacement struct {
	Name     string  `json:"name"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size,omitempty"`
}

// Validate checks name, page and coordinates.
func (f FieldPlacement) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field placement with empty name")
	}
	if f.Page < 1 {
		return fmt.Errorf("field %q: page must be >= 1", f.Name)
	}
	if f.X < 0 || f.Y < 0 {
		return fmt.Errorf("field %q: negative coordinates", f.Name)
	}
	return nil
}

// PackageDefinition is a named, jurisdiction-agnostic bundle of contract
// document templates. At most one definition is flagged as the default.
type PackageDefinition struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	IsDefault        bool      `json:"is_default"`
	CancellationDays int       `json:"cancellation_days"`
	SigningClientID  string    `json:"signing_client_id,omitempty"`
	CountersignPNG   []byte    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// JurisdictionMapping maps a two-letter jurisdiction code to a package.
// A jurisdiction maps to at most one package; unmapped jurisdictions fall
// back to the default package.
type JurisdictionMapping struct {
	Code      string `json:"code"`
	PackageID string `json:"package_id"`
}

// DocumentTemplate is one uploaded base contract PDF for a
// (package, contract type) pair, with its placement metadata and content hash.
// The stored SHA256 must always equal the recomputed hash of Bytes; a
// mismatch is a fatal integrity error, never silently repaired.
type DocumentTemplate struct {
	ID           string               `json:"id"`
	PackageID    string               `json:"package_id"`
	ContractType ContractType         `json:"contract_type"`
	Filename     string               `json:"filename"`
	Size         int64                `json:"size"`
	MIMEType     string               `json:"mime_type"`
	SHA256       string               `json:"sha256"`
	Placements   []SignaturePlacement `json:"placements"`
	Fields       []FieldPlacement     `json:"fields,omitempty"`
	Bytes        []byte               `json:"-"`
	UploadedBy   string               `json:"uploaded_by,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// SigningEvent is one captured signature occurrence with its audit metadata.
// It is ephemeral: consumed into a certificate during assembly, never
// persisted on its own. ImageData carries a base64 PNG data URL for drawn
// signatures; SignatureHash stands in when no image was captured.
type SigningEvent struct {
	Role          SignatureRole `json:"role"`
	SignerName    string        `json:"signer_name"`
	Email         string        `json:"email"`
	CapturedAt    time.Time     `json:"captured_at"`
	Timezone      string        `json:"timezone"`
	Method        CaptureMethod `json:"method"`
	IPAddress     string        `json:"ip_address"`
	DeviceID      string        `json:"device_id,omitempty"`
	UserAgent     string        `json:"user_agent"`
	ImageData     string        `json:"image_data,omitempty"`
	SignatureHash string        `json:"signature_hash,omitempty"`
}

// Certificate describes one generated signature certificate. Immutable once
// created; its pages are appended to the assembled package.
type Certificate struct {
	ID             string         `json:"id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	SecurityMethod string         `json:"security_method"`
	DocumentHash   string         `json:"document_hash"`
	Events         []SigningEvent `json:"events"`
}

// AssembledPackage is the final artifact record: the concatenated PDF plus
// the job status the orchestrator drives it through. Only the orchestrator
// mutates a record, and only until it reaches a terminal status.
type AssembledPackage struct {
	ID            string     `json:"id"`
	TrackingID    string     `json:"tracking_id"`
	Status        string     `json:"status"`
	CertificateID string     `json:"certificate_id,omitempty"`
	Bytes         []byte     `json:"-"`
	Size          int64      `json:"size,omitempty"`
	PageCount     int        `json:"page_count,omitempty"`
	SHA256        string     `json:"sha256,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	SubmittedBy   string     `json:"submitted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the package record reached a final status.
func (a *AssembledPackage) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}
