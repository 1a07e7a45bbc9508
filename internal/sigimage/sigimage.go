// Package sigimage decodes captured signature images from the base64 PNG
// data URLs the enrollment UI submits, and resizes them to placement
// rectangles. Resizing is anisotropic: the raster is stretched to the exact
// target dimensions, so a rendered stamp fills its rectangle regardless of
// the source canvas resolution.
package sigimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"go-contractpack/internal/model"
)

const dataURLPrefix = "data:image/png;base64,"

// DecodeDataURL extracts and validates the PNG payload of a signature data
// URL. A payload that is not valid base64, or not a decodable PNG, yields
// model.ErrSignatureDecode.
func DecodeDataURL(dataURL string) ([]byte, error) {
	s := strings.TrimSpace(dataURL)
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, fmt.Errorf("%w: payload is not a PNG data URL", model.ErrSignatureDecode)
	}
	raw, err := base64.StdEncoding.DecodeString(s[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", model.ErrSignatureDecode, err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: invalid PNG: %v", model.ErrSignatureDecode, err)
	}
	return raw, nil
}

// Resize stretches the PNG to exactly w x h pixels and re-encodes it.
func Resize(pngBytes []byte, w, h int) ([]byte, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: target size %dx%d", model.ErrSignatureDecode, w, h)
	}
	src, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid PNG: %v", model.ErrSignatureDecode, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode resized signature: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURL wraps raw PNG bytes back into a data URL. Used by tests and
// by callers that need to round-trip captured images.
func EncodeDataURL(pngBytes []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(pngBytes)
}
