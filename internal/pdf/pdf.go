// Package pdf wraps the pdfcpu operations the pipeline needs: stamping
// signature images and autofill text at absolute positions, merging
// documents, and querying page geometry.
//
// Coordinate system: PDF point space with the origin (0,0) at the page
// bottom-left corner, y increasing upward. A standard US Letter page is
// 612x792 points. A measurement taken from the top of the page converts
// with FromTop.
package pdf

import (
	"fmt"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	dmodel "go-contractpack/internal/model"
)

// Dim is one page's width and height in points.
type Dim struct {
	Width  float64
	Height float64
}

// FromTop converts a distance measured down from the top edge of a page to
// the bottom-left-origin y coordinate: y = pageHeight - d.
func FromTop(pageHeight, d float64) float64 {
	return pageHeight - d
}

// ResolvePage maps a placement's page reference onto a document with
// pageCount pages. "Last page" resolves to pageCount; an explicit page
// outside [1, pageCount] is a fatal input error — the resolver should have
// validated placements ahead of time.
func ResolvePage(p dmodel.SignaturePlacement, pageCount int) (int, error) {
	if p.LastPage {
		return pageCount, nil
	}
	if p.Page < 1 || p.Page > pageCount {
		return 0, fmt.Errorf("placement %q targets page %d of a %d-page document", p.Label, p.Page, pageCount)
	}
	return p.Page, nil
}

func MergePDFs(files []string, outputPath string) error {
	config := model.NewDefaultConfiguration()
	return pdfapi.MergeCreateFile(files, outputPath, false, config)
}

func RemoveBookmarks(pdfPath string) error {
	config := model.NewDefaultConfiguration()
	return pdfapi.RemoveBookmarksFile(pdfPath, pdfPath, config)
}

// PageCount returns the number of pages in the PDF at pdfPath.
func PageCount(pdfPath string) (int, error) {
	return pdfapi.PageCountFile(pdfPath)
}

// PageDims returns the media box dimensions of every page, in points.
func PageDims(pdfPath string) ([]Dim, error) {
	dims, err := pdfapi.PageDimsFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	out := make([]Dim, len(dims))
	for i, d := range dims {
		out[i] = Dim{Width: d.Width, Height: d.Height}
	}
	return out, nil
}

// Validate checks that the PDF at pdfPath is readable by pdfcpu.
func Validate(pdfPath string) error {
	config := model.NewDefaultConfiguration()
	return pdfapi.ValidateFile(pdfPath, config)
}

// StampImage places the raster image at imgPath onto pdfPath in place, so
// that the image's bottom-left corner sits at (rect.X1, rect.Y1) of the
// 1-based page. The caller is expected to have resized the image to the
// rectangle's point dimensions (1px = 1pt at scale 1 abs), which makes the
// rendered bounding box fill the rectangle exactly.
func StampImage(pdfPath, imgPath string, pageNum int, rect dmodel.Rect) error {
	// scale:1 abs renders at native image size, pos:bl anchors at the page
	// bottom-left, Dx/Dy shift to the rectangle origin.
	desc := "scale:1 abs, pos:bl, rot:0, op:1"

	wm, err := pdfcpu.ParseImageWatermarkDetails(imgPath, desc, true, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse image watermark: %w", err)
	}
	wm.Dx = rect.X1
	wm.Dy = rect.Y1

	config := model.NewDefaultConfiguration()
	pages := []string{fmt.Sprintf("%d", pageNum)}
	if err := pdfapi.AddWatermarksFile(pdfPath, "", pages, wm, config); err != nil {
		return fmt.Errorf("failed to apply image stamp: %w", err)
	}
	return nil
}

// StampText writes text onto pdfPath in place with its baseline anchored at
// (x, y) of the 1-based page, in black Helvetica at fontSize points.
func StampText(pdfPath, text string, pageNum int, x, y, fontSize float64) error {
	if fontSize <= 0 {
		fontSize = 10
	}
	desc := fmt.Sprintf("font:Helvetica, points:%.0f, scale:1 abs, pos:bl, fillcolor:#000000, rot:0, op:1", fontSize)

	wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse text watermark: %w", err)
	}
	wm.Dx = x
	wm.Dy = y

	config := model.NewDefaultConfiguration()
	pages := []string{fmt.Sprintf("%d", pageNum)}
	if err := pdfapi.AddWatermarksFile(pdfPath, "", pages, wm, config); err != nil {
		return fmt.Errorf("failed to apply text stamp: %w", err)
	}
	return nil
}

// CopyFile copies a file from src to dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
