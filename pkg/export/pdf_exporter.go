package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders NOC certificates as PDF artifacts mirroring the
// canonical text layout.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the certificate PDF for the provided data.
func (e *PDFExporter) Render(data CertificateData) ([]byte, error) {
	if data.RefNumber == "" {
		return nil, fmt.Errorf("pdf requires a reference number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, certificateTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Date: "+data.IssueDate, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Ref: "+data.RefNumber, "", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.CellFormat(0, 6, certificateSalutation, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.MultiCell(0, 6, certificateBody(data), "", "J", false)
	pdf.Ln(4)
	pdf.MultiCell(0, 6, certificateClosing, "", "J", false)

	pdf.Ln(24)
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	y := pdf.GetY()
	pdf.Line(left, y, left+(pageWidth-left-right)/3, y)
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, certificateSignature, "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
