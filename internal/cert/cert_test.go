package cert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-contractpack/internal/model"
	"go-contractpack/internal/pdf"
	"go-contractpack/internal/sigimage"
)

var testCompany = Company{
	Name:          "Acme Credit Services",
	VerifyURLBase: "https://verify.example.com/certificates",
}

func signaturePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for x := 0; x < 300; x++ {
		img.Set(x, 50, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return sigimage.EncodeDataURL(buf.Bytes())
}

func event(t *testing.T, name string, withImage bool) model.SigningEvent {
	t.Helper()
	ev := model.SigningEvent{
		Role:       model.RoleClient,
		SignerName: name,
		Email:      strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		CapturedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Timezone:   "America/Chicago",
		Method:     model.MethodDrawn,
		IPAddress:  "203.0.113.7",
		UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36",
	}
	if withImage {
		ev.ImageData = signaturePNG(t)
	} else {
		ev.Method = model.MethodTyped
		ev.SignatureHash = strings.Repeat("ab", 32)
	}
	return ev
}

func pageCount(t *testing.T, b []byte) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cert.pdf")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := pdf.PageCount(path)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return n
}

func TestNewCertificateID(t *testing.T) {
	id := NewCertificateID()
	if !strings.HasPrefix(id, "SIGCERT-") {
		t.Errorf("missing prefix: %s", id)
	}
	if len(id) != len("SIGCERT-")+12 {
		t.Errorf("unexpected length %d: %s", len(id), id)
	}
	if NewCertificateID() == id {
		t.Error("consecutive certificate ids collided")
	}
}

func TestGenerateSingleEvent(t *testing.T) {
	g := New(testCompany)
	b, err := g.Generate(&model.Certificate{
		ID:             NewCertificateID(),
		GeneratedAt:    time.Now().UTC(),
		SecurityMethod: "SHA-256 content hashing",
		DocumentHash:   strings.Repeat("cd", 32),
		Events:         []model.SigningEvent{event(t, "Jane Doe", true)},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if pageCount(t, b) != 1 {
		t.Errorf("single event should fit one page, got %d", pageCount(t, b))
	}
}

func TestGenerateHashOnlyEvent(t *testing.T) {
	g := New(testCompany)
	b, err := g.Generate(&model.Certificate{
		ID:             NewCertificateID(),
		GeneratedAt:    time.Now().UTC(),
		SecurityMethod: "SHA-256 content hashing",
		DocumentHash:   strings.Repeat("ef", 32),
		Events:         []model.SigningEvent{event(t, "John Smith", false)},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if pageCount(t, b) != 1 {
		t.Errorf("page count = %d, want 1", pageCount(t, b))
	}
}

func TestGeneratePaginatesManyEvents(t *testing.T) {
	var events []model.SigningEvent
	for i := 0; i < 12; i++ {
		events = append(events, event(t, fmt.Sprintf("Signer Number %d", i+1), i%2 == 0))
	}

	g := New(testCompany)
	b, err := g.Generate(&model.Certificate{
		ID:             NewCertificateID(),
		GeneratedAt:    time.Now().UTC(),
		SecurityMethod: "SHA-256 content hashing",
		DocumentHash:   strings.Repeat("01", 32),
		Events:         events,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n := pageCount(t, b); n < 2 {
		t.Errorf("12 events should overflow one page, got %d", n)
	}
}

func TestGenerateIsDeterministicPerInput(t *testing.T) {
	c := &model.Certificate{
		ID:             "SIGCERT-TESTTESTTEST",
		GeneratedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SecurityMethod: "SHA-256 content hashing",
		DocumentHash:   strings.Repeat("22", 32),
		Events:         []model.SigningEvent{event(t, "Jane Doe", false)},
	}
	g := New(testCompany)
	a, err := g.Generate(c)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Generate(c)
	if err != nil {
		t.Fatal(err)
	}
	if pageCount(t, a) != pageCount(t, b) {
		t.Error("same input produced different pagination")
	}
}

func TestGenerateRejectsBadSignatureImage(t *testing.T) {
	ev := event(t, "Jane Doe", true)
	ev.ImageData = "data:image/png;base64,garbage!"
	g := New(testCompany)
	_, err := g.Generate(&model.Certificate{
		ID:          NewCertificateID(),
		GeneratedAt: time.Now().UTC(),
		Events:      []model.SigningEvent{ev},
	})
	if err == nil {
		t.Fatal("expected error for undecodable signature image")
	}
}

func TestTruncateHash(t *testing.T) {
	long := strings.Repeat("a", 64)
	if got := truncateHash(long); got != strings.Repeat("a", 24)+"..." {
		t.Errorf("truncateHash(long) = %q", got)
	}
	if got := truncateHash(""); got != "(none)" {
		t.Errorf("truncateHash(empty) = %q", got)
	}
	if got := truncateHash("short"); got != "short" {
		t.Errorf("truncateHash(short) = %q", got)
	}
}
