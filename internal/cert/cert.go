// Package cert renders the signature certificate PDF appended to every
// assembled package: one block per signing event with the signer's audit
// metadata and captured signature, followed by a verification section
// quoting the certificate ID.
//
// Branding comes from an injected Company struct, not from ambient lookup,
// so the generator stays pure: the same inputs always produce the same
// page layout.
package cert

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"go-contractpack/internal/model"
	"go-contractpack/internal/sigimage"
	"go-contractpack/internal/utils"
)

// Company is the branding and verification metadata stamped onto the
// certificate.
type Company struct {
	Name          string
	VerifyURLBase string
}

// Page geometry in points (US Letter, top-left origin in fpdf).
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	marginX    = 54.0
	frameInset = 36.0

	// bottomThreshold is the running-cursor limit; content that would pass
	// it starts a new framed page.
	bottomThreshold = pageHeight - 90.0

	sigBoxWidth  = 150.0
	sigBoxHeight = 50.0
)

// certIDPrefix precedes the uppercase alphanumeric suffix of every
// certificate ID.
const certIDPrefix = "SIGCERT-"

// NewCertificateID returns a fresh certificate ID. The suffix carries a
// crypto/rand component, so a duplicate-ID collision means regenerate, not
// overwrite.
func NewCertificateID() string {
	return certIDPrefix + utils.UppercaseToken(12)
}

// Generator renders certificates for one company configuration.
type Generator struct {
	company Company
}

func New(company Company) *Generator {
	return &Generator{company: company}
}

// Generate renders the certificate PDF. Events are rendered in input order;
// pagination is a pure function of the input list and field lengths.
func (g *Generator) Generate(c *model.Certificate) ([]byte, error) {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle("Signature Certificate "+c.ID, false)

	addFramedPage(doc)
	y := g.drawHeader(doc, c)

	for i, ev := range c.Events {
		blockH, uaLines := g.measureBlock(doc, ev)
		if y+blockH > bottomThreshold {
			addFramedPage(doc)
			y = frameInset + 24
		}
		var err error
		y, err = g.drawEvent(doc, ev, i, y, uaLines)
		if err != nil {
			return nil, err
		}
	}

	if y+70 > bottomThreshold {
		addFramedPage(doc)
		y = frameInset + 24
	}
	g.drawVerification(doc, c, y)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: certificate render: %v", model.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// addFramedPage starts a page with the decorative double border repeated on
// every certificate page.
func addFramedPage(doc *fpdf.Fpdf) {
	doc.AddPage()
	doc.SetDrawColor(40, 40, 40)
	doc.SetLineWidth(1.2)
	doc.Rect(frameInset, frameInset, pageWidth-2*frameInset, pageHeight-2*frameInset, "D")
	doc.SetLineWidth(0.4)
	doc.Rect(frameInset+4, frameInset+4, pageWidth-2*frameInset-8, pageHeight-2*frameInset-8, "D")
}

func (g *Generator) drawHeader(doc *fpdf.Fpdf, c *model.Certificate) float64 {
	y := frameInset + 28.0

	doc.SetFont("Helvetica", "B", 18)
	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 20, g.company.Name, "", 0, "C", false, 0, "")
	y += 26

	doc.SetFont("Helvetica", "", 13)
	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 16, "Certificate of Electronic Signature", "", 0, "C", false, 0, "")
	y += 28

	doc.SetFont("Courier", "", 10)
	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 12, "Certificate ID: "+c.ID, "", 0, "C", false, 0, "")
	y += 16

	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 11,
		"Generated "+c.GeneratedAt.UTC().Format("Jan 2, 2006 15:04:05 MST"), "", 0, "C", false, 0, "")
	y += 13

	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 11, "Security: "+c.SecurityMethod, "", 0, "C", false, 0, "")
	y += 15

	doc.SetFont("Courier", "", 8)
	doc.SetXY(marginX, y)
	doc.CellFormat(pageWidth-2*marginX, 10, "Document SHA-256: "+c.DocumentHash, "", 0, "C", false, 0, "")
	y += 18

	doc.SetDrawColor(120, 120, 120)
	doc.Line(marginX, y, pageWidth-marginX, y)
	return y + 14
}

// measureBlock computes the block height for one event ahead of drawing,
// so the page-break decision is made before any ink.
func (g *Generator) measureBlock(doc *fpdf.Fpdf, ev model.SigningEvent) (float64, []string) {
	doc.SetFont("Helvetica", "", 9)
	ua := ev.UserAgent
	var uaLines []string
	if ua != "" {
		uaLines = doc.SplitText(ua, pageWidth-2*marginX-70)
	}

	h := 16.0            // signer name line
	h += 4 * 12.0        // signed/method/email/ip lines
	if ev.DeviceID != "" {
		h += 12.0
	}
	h += float64(len(uaLines)) * 11.0
	if ev.ImageData != "" {
		h += sigBoxHeight + 14
	} else {
		h += 14 // truncated hash line
	}
	return h + 16, uaLines
}

func (g *Generator) drawEvent(doc *fpdf.Fpdf, ev model.SigningEvent, idx int, y float64, uaLines []string) (float64, error) {
	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "B", 11)
	doc.SetXY(marginX, y)
	doc.CellFormat(0, 13, fmt.Sprintf("%s  (%s)", ev.SignerName, ev.Role), "", 0, "L", false, 0, "")
	y += 16

	doc.SetFont("Helvetica", "", 9)
	line := func(s string) {
		doc.SetXY(marginX+10, y)
		doc.CellFormat(0, 11, s, "", 0, "L", false, 0, "")
		y += 12
	}

	tz := ev.Timezone
	if tz == "" {
		tz = "UTC"
	}
	line(fmt.Sprintf("Signed: %s (%s)", formatInZone(ev.CapturedAt, tz), tz))
	line("Method: " + string(ev.Method))
	line("Email: " + ev.Email)
	line("IP address: " + ev.IPAddress)
	if ev.DeviceID != "" {
		line("Device: " + ev.DeviceID)
	}
	for i, ul := range uaLines {
		prefix := "User agent: "
		if i > 0 {
			prefix = "            "
		}
		doc.SetXY(marginX+10, y)
		doc.CellFormat(0, 10, prefix+ul, "", 0, "L", false, 0, "")
		y += 11
	}

	if ev.ImageData != "" {
		raw, err := sigimage.DecodeDataURL(ev.ImageData)
		if err != nil {
			return 0, err
		}
		name := fmt.Sprintf("sig-%d", idx)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
		doc.SetDrawColor(160, 160, 160)
		doc.Rect(marginX+10, y+4, sigBoxWidth, sigBoxHeight, "D")
		doc.ImageOptions(name, marginX+10, y+4, sigBoxWidth, sigBoxHeight, false, opts, 0, "")
		y += sigBoxHeight + 14
	} else {
		doc.SetFont("Courier", "", 8)
		doc.SetXY(marginX+10, y)
		doc.CellFormat(0, 10, "Signature hash: "+truncateHash(ev.SignatureHash), "", 0, "L", false, 0, "")
		y += 14
	}

	return y + 16, nil
}

func (g *Generator) drawVerification(doc *fpdf.Fpdf, c *model.Certificate, y float64) {
	doc.SetDrawColor(120, 120, 120)
	doc.Line(marginX, y, pageWidth-marginX, y)
	y += 14

	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "B", 10)
	doc.SetXY(marginX, y)
	doc.CellFormat(0, 12, "Verification", "", 0, "L", false, 0, "")
	y += 14

	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(marginX, y)
	doc.CellFormat(0, 11, "This certificate can be verified at:", "", 0, "L", false, 0, "")
	y += 12

	doc.SetFont("Courier", "", 9)
	doc.SetXY(marginX, y)
	doc.CellFormat(0, 11, fmt.Sprintf("%s/%s", g.company.VerifyURLBase, c.ID), "", 0, "L", false, 0, "")
}

// formatInZone renders the capture timestamp in the signer's timezone when
// the zone name loads, falling back to UTC.
func formatInZone(t time.Time, tz string) string {
	if loc, err := time.LoadLocation(tz); err == nil {
		t = t.In(loc)
	} else {
		t = t.UTC()
	}
	return t.Format("Jan 2, 2006 15:04:05")
}

// truncateHash shortens a hex digest for display.
func truncateHash(h string) string {
	if len(h) > 24 {
		return h[:24] + "..."
	}
	if h == "" {
		return "(none)"
	}
	return h
}
