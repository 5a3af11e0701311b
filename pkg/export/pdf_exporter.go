package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a transcript into a simple printable PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the conversation title followed by
// one block per turn.
func (e *PDFExporter) Render(t Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	title := t.Title
	if title == "" {
		title = "Conversation"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.MultiCell(0, 8, title, "", "L", false)
	if t.Model != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("Model: %s", t.Model), "", "L", false)
	}
	pdf.Ln(4)

	for _, entry := range t.Entries {
		pdf.SetFont("Arial", "B", 10)
		heading := fmt.Sprintf("%s - %s", entry.Role, entry.SentAt.UTC().Format(time.RFC3339))
		pdf.MultiCell(0, 6, heading, "", "L", false)

		pdf.SetFont("Arial", "", 10)
		// MultiCell wraps long turns across lines and pages.
		pdf.MultiCell(0, 5, entry.Content, "", "L", false)
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
