// Package utils provides small helpers used across the service: filename
// sanitization for uploads, UUID generation, and the uppercase token
// suffixes used for certificate and tracking identifiers.
package utils

import (
	"crypto/rand"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

func SanitizeFilename(name string) string {
	base := filepath.Base(name)
	re := regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	safe := re.ReplaceAllString(base, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func GenerateUUID() string {
	return uuid.New().String()
}

// tokenAlphabet deliberately omits 0/O and 1/I so tokens stay legible when
// read back over the phone.
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// UppercaseToken returns n random characters from the token alphabet,
// sourced from crypto/rand.
func UppercaseToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure is unrecoverable for id generation
		panic(err)
	}
	for i := range b {
		b[i] = tokenAlphabet[int(b[i])%len(tokenAlphabet)]
	}
	return string(b)
}
