// Package assembler concatenates the signed contract documents and the
// signature certificate into the final package PDF. No content validation
// happens here — a malformed constituent fails earlier, in the fill or
// certificate step.
package assembler

import (
	"fmt"
	"os"
	"path/filepath"

	"go-contractpack/internal/integrity"
	"go-contractpack/internal/model"
	"go-contractpack/internal/pdf"
	"go-contractpack/internal/utils"
)

// Result is the assembled package blob with its measured size, page count
// and content hash.
type Result struct {
	Bytes     []byte
	Size      int64
	PageCount int
	SHA256    string
}

// Assemble merges the signed documents, in the caller's order, followed by
// the certificate as the final pages. Certificate bytes are staged into dir
// alongside the documents.
func Assemble(dir string, signedPaths []string, certBytes []byte) (*Result, error) {
	if len(signedPaths) == 0 {
		return nil, fmt.Errorf("%w: no documents to assemble", model.ErrRender)
	}

	certPath := filepath.Join(dir, "certificate-"+utils.GenerateUUID()+".pdf")
	if err := os.WriteFile(certPath, certBytes, 0o644); err != nil {
		return nil, fmt.Errorf("stage certificate: %w", err)
	}

	outPath := filepath.Join(dir, "package-"+utils.GenerateUUID()+".pdf")
	inputs := append(append([]string{}, signedPaths...), certPath)
	if err := pdf.MergePDFs(inputs, outPath); err != nil {
		return nil, fmt.Errorf("%w: merge package: %v", model.ErrRender, err)
	}
	if err := pdf.RemoveBookmarks(outPath); err != nil {
		return nil, fmt.Errorf("%w: strip merge bookmarks: %v", model.ErrRender, err)
	}

	pages, err := pdf.PageCount(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: page count of package: %v", model.ErrRender, err)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read assembled package: %w", err)
	}

	return &Result{
		Bytes:     b,
		Size:      int64(len(b)),
		PageCount: pages,
		SHA256:    integrity.Hash(b),
	}, nil
}
