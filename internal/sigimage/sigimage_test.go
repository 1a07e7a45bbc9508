package sigimage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go-contractpack/internal/model"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDataURLRoundTrip(t *testing.T) {
	raw := testPNG(t, 300, 100)
	got, err := DecodeDataURL(EncodeDataURL(raw))
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("round-tripped bytes differ")
	}
}

func TestDecodeDataURLRejects(t *testing.T) {
	tests := []struct {
		name    string
		dataURL string
	}{
		{"no prefix", base64.StdEncoding.EncodeToString(testPNG(t, 10, 10))},
		{"jpeg prefix", "data:image/jpeg;base64,abcd"},
		{"bad base64", "data:image/png;base64,%%%not-base64%%%"},
		{"not a png", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDataURL(tt.dataURL)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, model.ErrSignatureDecode) {
				t.Errorf("expected ErrSignatureDecode, got %v", err)
			}
		})
	}
}

func TestResize(t *testing.T) {
	// Stretch a wide canvas to a short rectangle; the aspect ratio is not
	// preserved on purpose.
	raw := testPNG(t, 600, 200)
	resized, err := Resize(raw, 150, 50)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("decode resized: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 150 || b.Dy() != 50 {
		t.Errorf("resized to %dx%d, want 150x50", b.Dx(), b.Dy())
	}
}

func TestResizeRejectsBadInput(t *testing.T) {
	if _, err := Resize(testPNG(t, 10, 10), 0, 50); !errors.Is(err, model.ErrSignatureDecode) {
		t.Errorf("zero width: expected ErrSignatureDecode, got %v", err)
	}
	if _, err := Resize([]byte("not a png"), 10, 10); !errors.Is(err, model.ErrSignatureDecode) {
		t.Errorf("garbage input: expected ErrSignatureDecode, got %v", err)
	}
}
