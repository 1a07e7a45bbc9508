// Package fill produces one signed contract document from a template: it
// overlays captured signature images onto the template's placements and
// writes autofill field values at their configured positions, then hashes
// the result.
//
// A decode failure on any required signature image fails the whole document
// — a partially stamped document is never emitted.
package fill

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go-contractpack/internal/integrity"
	"go-contractpack/internal/model"
	"go-contractpack/internal/pdf"
	"go-contractpack/internal/sigimage"
	"go-contractpack/internal/utils"
)

// Result describes one signed single-document PDF.
type Result struct {
	// Path of the signed document inside the job workspace.
	Path string
	// SHA256 of the signed document bytes.
	SHA256 string
	// PageCount of the signed document.
	PageCount int
}

// Fill stamps the template into dir and returns the signed document.
// Placements with no matching signing event are left blank; countersign
// placements fall back to the package's countersign image when no
// countersign event was supplied. The template's stored hash is verified
// before any work begins.
func Fill(dir string, tmpl *model.DocumentTemplate, pkg *model.PackageDefinition,
	fields map[string]string, events []model.SigningEvent) (*Result, error) {

	if err := integrity.Check(tmpl.Bytes, tmpl.SHA256, "template "+tmpl.ID); err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, fmt.Sprintf("%s-%s.pdf", tmpl.ContractType, utils.GenerateUUID()))
	if err := os.WriteFile(outPath, tmpl.Bytes, 0o644); err != nil {
		return nil, fmt.Errorf("stage template %s: %w", tmpl.ID, err)
	}
	if err := pdf.Validate(outPath); err != nil {
		return nil, fmt.Errorf("%w: template %s is not a readable PDF: %v", model.ErrRender, tmpl.ID, err)
	}

	pageCount, err := pdf.PageCount(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: page count of template %s: %v", model.ErrRender, tmpl.ID, err)
	}

	for _, placement := range tmpl.Placements {
		raw, ok, err := signatureFor(placement, pkg, events)
		if err != nil {
			return nil, fmt.Errorf("document %s, placement %q: %w", tmpl.ContractType, placement.Label, err)
		}
		if !ok {
			continue
		}

		page, err := pdf.ResolvePage(placement, pageCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrRender, err)
		}

		// Stretch the raster to the rectangle's point dimensions so the
		// stamp fills it exactly at 1px = 1pt.
		w := int(math.Round(placement.Rect.Width()))
		h := int(math.Round(placement.Rect.Height()))
		resized, err := sigimage.Resize(raw, w, h)
		if err != nil {
			return nil, fmt.Errorf("document %s, placement %q: %w", tmpl.ContractType, placement.Label, err)
		}

		imgPath := filepath.Join(dir, "sig-"+utils.GenerateUUID()+".png")
		if err := os.WriteFile(imgPath, resized, 0o644); err != nil {
			return nil, fmt.Errorf("stage signature image: %w", err)
		}
		if err := pdf.StampImage(outPath, imgPath, page, placement.Rect); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrRender, err)
		}
	}

	for _, field := range tmpl.Fields {
		value, ok := fields[field.Name]
		if !ok || value == "" {
			continue
		}
		if err := pdf.StampText(outPath, value, field.Page, field.X, field.Y, field.FontSize); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", model.ErrRender, field.Name, err)
		}
	}

	signed, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read signed document: %w", err)
	}
	return &Result{
		Path:      outPath,
		SHA256:    integrity.Hash(signed),
		PageCount: pageCount,
	}, nil
}

// signatureFor picks the image bytes for a placement. Returns ok=false when
// the placement stays blank (no matching event and no fallback) — that is
// not an error.
func signatureFor(p model.SignaturePlacement, pkg *model.PackageDefinition, events []model.SigningEvent) ([]byte, bool, error) {
	for _, ev := range events {
		if ev.Role != p.Role {
			continue
		}
		if ev.ImageData == "" {
			// Hash-only capture: nothing to stamp.
			return nil, false, nil
		}
		raw, err := sigimage.DecodeDataURL(ev.ImageData)
		if err != nil {
			return nil, false, err
		}
		return raw, true, nil
	}
	if p.Role == model.RoleCountersign && len(pkg.CountersignPNG) > 0 {
		return pkg.CountersignPNG, true, nil
	}
	return nil, false, nil
}
