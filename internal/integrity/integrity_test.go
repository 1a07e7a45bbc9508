package integrity

import (
	"errors"
	"strings"
	"testing"

	"go-contractpack/internal/model"
)

func TestHashIsStable(t *testing.T) {
	b := []byte("contract content")
	h1 := Hash(b)
	h2 := Hash(b)
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 != strings.ToLower(h1) {
		t.Errorf("hash is not lowercase: %s", h1)
	}
}

func TestVerify(t *testing.T) {
	b := []byte("some pdf bytes")
	h := Hash(b)

	if !Verify(b, h) {
		t.Error("verify rejected matching content")
	}

	// A single flipped bit must fail verification.
	tampered := append([]byte(nil), b...)
	tampered[len(tampered)/2] ^= 0x01
	if Verify(tampered, h) {
		t.Error("verify accepted tampered content")
	}
}

func TestVerifyRejectsMalformedDigest(t *testing.T) {
	b := []byte("content")
	for _, expected := range []string{"", "not-hex", "abcd", Hash(b) + "00"} {
		if Verify(b, expected) {
			t.Errorf("verify accepted malformed digest %q", expected)
		}
	}
}

func TestCheck(t *testing.T) {
	b := []byte("blob")
	if err := Check(b, Hash(b), "blob x"); err != nil {
		t.Fatalf("check failed on matching content: %v", err)
	}

	err := Check(b, Hash([]byte("other")), "document abc")
	if err == nil {
		t.Fatal("check passed on mismatched content")
	}
	if !errors.Is(err, model.ErrIntegrityMismatch) {
		t.Errorf("expected ErrIntegrityMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "document abc") {
		t.Errorf("error should name the blob: %v", err)
	}
}
