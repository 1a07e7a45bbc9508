// Package integrity computes and checks the SHA-256 content hashes stored
// alongside every PDF blob. Every read of a stored template or assembled
// package goes through Check before bytes are served; a mismatch means
// storage corruption or tampering and always fails closed.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"go-contractpack/internal/model"
)

// Hash returns the lowercase hex SHA-256 digest of b.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the recomputed hash of b equals expected.
// Comparison is constant-time over the decoded digests.
func Verify(b []byte, expected string) bool {
	want, err := hex.DecodeString(expected)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	sum := sha256.Sum256(b)
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}

// Check returns a model.ErrIntegrityMismatch error describing the blob when
// verification fails, nil otherwise.
func Check(b []byte, expected, label string) error {
	if Verify(b, expected) {
		return nil
	}
	return fmt.Errorf("%w: %s (stored %s, recomputed %s)",
		model.ErrIntegrityMismatch, label, expected, Hash(b))
}
