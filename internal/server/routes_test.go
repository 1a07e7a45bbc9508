package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"

	"go-contractpack/internal/config"
	"go-contractpack/internal/jobs"
	"go-contractpack/internal/model"
	"go-contractpack/internal/sigimage"
	"go-contractpack/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestService wires the full HTTP API over the in-memory store and queue,
// with one assembly worker running.
func newTestService(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	cfg := &config.Config{
		Port:          0,
		WorkDir:       t.TempDir(),
		CompanyName:   "Acme Credit Services",
		VerifyURLBase: "https://verify.example.com/certificates",
	}
	st := store.NewMemory()
	queue := jobs.NewMemQueue()

	srv, err := New(cfg, st, queue, testLogger())
	if err != nil {
		t.Fatalf("server setup: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.StartWorker(ctx, 1)

	ts := httptest.NewServer(srv.RegisterRoutes())
	t.Cleanup(ts.Close)
	return ts, st
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		doc.SetXY(72, 72)
		doc.CellFormat(0, 14, fmt.Sprintf("page %d", i+1), "", 0, "L", false, 0, "")
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render test pdf: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for x := 0; x < 300; x++ {
		img.Set(x, 50, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createPackage(t *testing.T, baseURL string) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/packages", map[string]any{
		"name":              "Standard Enrollment",
		"is_default":        true,
		"cancellation_days": 3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create package: status %d", resp.StatusCode)
	}
	var pkg model.PackageDefinition
	decodeBody(t, resp, &pkg)
	return pkg.ID
}

func uploadDocument(t *testing.T, baseURL, packageID string, ct model.ContractType, content []byte, placements []model.SignaturePlacement) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("pdf", string(ct)+".pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	pj, err := json.Marshal(placements)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("placements", string(pj)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	url := fmt.Sprintf("%s/api/packages/%s/documents/%s", baseURL, packageID, ct)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Staff-ID", "staff-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload %s: %v", ct, err)
	}
	return resp
}

func uploadAllDocuments(t *testing.T, baseURL, packageID string) {
	t.Helper()
	placements := []model.SignaturePlacement{{
		Role:     model.RoleClient,
		Label:    "client-sig",
		LastPage: true,
		Rect:     model.Rect{X1: 100, Y1: 100, X2: 250, Y2: 150},
	}}
	for i, ct := range model.RequiredContractTypes {
		resp := uploadDocument(t, baseURL, packageID, ct, pdfBytes(t, i+1), placements)
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			t.Fatalf("upload %s: status %d: %s", ct, resp.StatusCode, b)
		}
		resp.Body.Close()
	}
}

func submitJob(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/jobs", payload)
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("submit job: status %d: %s", resp.StatusCode, b)
	}
	var out map[string]string
	decodeBody(t, resp, &out)
	if out["job_id"] == "" || !strings.HasPrefix(out["tracking_id"], "PKG-") {
		t.Fatalf("submit response: %v", out)
	}
	return out["job_id"]
}

// pollJob polls the status endpoint until the job reaches a terminal state.
func pollJob(t *testing.T, baseURL, jobID string) model.AssembledPackage {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/jobs/" + jobID)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		var job model.AssembledPackage
		decodeBody(t, resp, &job)
		if job.Terminal() {
			return job
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return model.AssembledPackage{}
}

func signingEvents(t *testing.T) []map[string]any {
	t.Helper()
	return []map[string]any{{
		"role":        "client",
		"signer_name": "Jane Doe",
		"email":       "jane@example.com",
		"captured_at": time.Now().UTC().Format(time.RFC3339),
		"timezone":    "America/Chicago",
		"method":      "drawn",
		"ip_address":  "203.0.113.7",
		"user_agent":  "Mozilla/5.0 Test",
		"image_data":  sigimage.EncodeDataURL(pngBytes(t)),
	}}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestService(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFullAssemblyFlow(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)
	uploadAllDocuments(t, ts.URL, pkgID)

	// Map TX to the package and resolve through the jurisdiction endpoint.
	resp := putJSON(t, ts.URL+"/api/jurisdictions/TX", map[string]string{"package_id": pkgID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert mapping: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/jurisdictions/tx/package")
	if err != nil {
		t.Fatal(err)
	}
	var resolved model.PackageDefinition
	decodeBody(t, resp, &resolved)
	if resolved.ID != pkgID {
		t.Fatalf("resolved package %s, want %s", resolved.ID, pkgID)
	}

	jobID := submitJob(t, ts.URL, map[string]any{
		"jurisdiction": "TX",
		"events":       signingEvents(t),
	})
	job := pollJob(t, ts.URL, jobID)
	if job.Status != model.StatusCompleted {
		t.Fatalf("job %s: %s", job.Status, job.ErrorMessage)
	}
	// 1+2+3 document pages plus the certificate.
	if job.PageCount < 7 {
		t.Errorf("page count = %d, want >= 7", job.PageCount)
	}
	if !strings.HasPrefix(job.CertificateID, "SIGCERT-") {
		t.Errorf("certificate id = %q", job.CertificateID)
	}

	// Inline download.
	resp, err = http.Get(ts.URL + "/api/jobs/" + jobID + "/package")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %s", ct)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "inline") {
		t.Errorf("disposition = %s", resp.Header.Get("Content-Disposition"))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Error("download is not a PDF")
	}

	// Attachment download.
	resp2, err := http.Get(ts.URL + "/api/jobs/" + jobID + "/package?download=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if !strings.HasPrefix(resp2.Header.Get("Content-Disposition"), "attachment") {
		t.Errorf("disposition = %s", resp2.Header.Get("Content-Disposition"))
	}
}

func TestDownloadRejectsTamperedPackage(t *testing.T) {
	ts, st := newTestService(t)
	pkgID := createPackage(t, ts.URL)
	uploadAllDocuments(t, ts.URL, pkgID)

	jobID := submitJob(t, ts.URL, map[string]any{
		"package_id": pkgID,
		"events":     signingEvents(t),
	})
	if job := pollJob(t, ts.URL, jobID); job.Status != model.StatusCompleted {
		t.Fatalf("job %s: %s", job.Status, job.ErrorMessage)
	}

	st.TamperJob(jobID)

	resp, err := http.Get(ts.URL + "/api/jobs/" + jobID + "/package")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("tampered download: status %d, want 500", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(b), jobID) || bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Error("tampered download leaked content")
	}
}

func TestSubmitIncompletePackageRejected(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)
	// No documents uploaded.

	resp := postJSON(t, ts.URL+"/api/jobs", map[string]any{"package_id": pkgID})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	for _, ct := range model.RequiredContractTypes {
		if !strings.Contains(string(b), string(ct)) {
			t.Errorf("error body should name missing type %s: %s", ct, b)
		}
	}
}

func TestUploadRejectsOutOfBoundsPlacement(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	resp := uploadDocument(t, ts.URL, pkgID, model.ContractTypeCROADisclosure, pdfBytes(t, 1),
		[]model.SignaturePlacement{{
			Role:  model.RoleClient,
			Label: "off-page",
			Page:  1,
			// X2 past the 612pt Letter width.
			Rect: model.Rect{X1: 500, Y1: 100, X2: 700, Y2: 150},
		}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsPageBeyondDocument(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	resp := uploadDocument(t, ts.URL, pkgID, model.ContractTypeCROADisclosure, pdfBytes(t, 2),
		[]model.SignaturePlacement{{
			Role:  model.RoleClient,
			Label: "phantom-page",
			Page:  5,
			Rect:  model.Rect{X1: 100, Y1: 100, X2: 250, Y2: 150},
		}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdatePackage(t *testing.T) {
	ts, _ := newTestService(t)
	firstID := createPackage(t, ts.URL) // default

	resp := postJSON(t, ts.URL+"/api/packages", map[string]any{"name": "State Variant"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create second package: status %d", resp.StatusCode)
	}
	var second model.PackageDefinition
	decodeBody(t, resp, &second)

	// Promote the second package to default and rename it.
	resp = putJSON(t, ts.URL+"/api/packages/"+second.ID, map[string]any{
		"name":              "State Variant v2",
		"is_default":        true,
		"cancellation_days": 5,
	})
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("update: status %d: %s", resp.StatusCode, b)
	}
	var updated model.PackageDefinition
	decodeBody(t, resp, &updated)
	if updated.Name != "State Variant v2" || !updated.IsDefault || updated.CancellationDays != 5 {
		t.Errorf("updated package = %+v", updated)
	}

	// The old default was demoted.
	var out struct {
		Package model.PackageDefinition `json:"package"`
	}
	r, err := http.Get(ts.URL + "/api/packages/" + firstID)
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, r, &out)
	if out.Package.IsDefault {
		t.Error("previous default package kept its flag")
	}

	resp = putJSON(t, ts.URL+"/api/packages/does-not-exist", map[string]any{"name": "X"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("update of missing package: status %d, want 404", resp.StatusCode)
	}
}

func TestUpdatePackageRequiresName(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	resp := putJSON(t, ts.URL+"/api/packages/"+pkgID, map[string]any{"name": "  "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	resp := uploadDocument(t, ts.URL, pkgID, model.ContractTypeCROADisclosure,
		[]byte("this is not a pdf"), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsTruncatedFile(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	// Fewer bytes than the magic prefix itself.
	resp := uploadDocument(t, ts.URL, pkgID, model.ContractTypeCROADisclosure,
		[]byte("%PD"), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsUnknownContractType(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	resp := uploadDocument(t, ts.URL, pkgID, "power_of_attorney", pdfBytes(t, 1), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCountersignUpload(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "countersign.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(pngBytes(t)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/packages/"+pkgID+"/countersign", &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCountersignRejectsNonPNG(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "countersign.txt")
	fw.Write([]byte("plain text, not a png"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/packages/"+pkgID+"/countersign", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetPackageReportsCompleteness(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)

	var out struct {
		Complete  bool                     `json:"complete"`
		Documents []model.DocumentTemplate `json:"documents"`
	}
	resp, err := http.Get(ts.URL + "/api/packages/" + pkgID)
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &out)
	if out.Complete {
		t.Error("empty package reported complete")
	}

	uploadAllDocuments(t, ts.URL, pkgID)
	resp, err = http.Get(ts.URL + "/api/packages/" + pkgID)
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &out)
	if !out.Complete {
		t.Error("full package reported incomplete")
	}
	if len(out.Documents) != 3 {
		t.Errorf("got %d documents, want 3", len(out.Documents))
	}
}

func TestDocumentDownloadRoundTrip(t *testing.T) {
	ts, _ := newTestService(t)
	pkgID := createPackage(t, ts.URL)
	content := pdfBytes(t, 1)

	resp := uploadDocument(t, ts.URL, pkgID, model.ContractTypeClientAgreement, content,
		[]model.SignaturePlacement{{
			Role: model.RoleClient, Label: "s", Page: 1,
			Rect: model.Rect{X1: 100, Y1: 100, X2: 250, Y2: 150},
		}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	var doc model.DocumentTemplate
	decodeBody(t, resp, &doc)
	if doc.UploadedBy != "staff-42" {
		t.Errorf("uploaded_by = %q", doc.UploadedBy)
	}

	dl, err := http.Get(ts.URL + "/api/documents/" + doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download: status %d", dl.StatusCode)
	}
	b, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, content) {
		t.Error("downloaded bytes differ from upload")
	}
}

func TestJobNotFound(t *testing.T) {
	ts, _ := newTestService(t)
	resp, err := http.Get(ts.URL + "/api/jobs/does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestResolveWithoutDefault(t *testing.T) {
	ts, _ := newTestService(t)
	// A non-default package exists but nothing maps or defaults.
	resp := postJSON(t, ts.URL+"/api/packages", map[string]any{"name": "Plain"})
	resp.Body.Close()

	r, err := http.Get(ts.URL + "/api/jurisdictions/WY/package")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", r.StatusCode)
	}
}
