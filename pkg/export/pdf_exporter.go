package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth    = 277.0 // A4 landscape minus margins
	firstColumn  = 22.0
	lineHeight   = 4.5
	cellPadLines = 1
)

// PDFExporter renders a dataset as a landscape grid. The first header is a
// narrow label column; cell values may span several lines separated by "\n".
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(len(data.Headers))
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		lines := 1
		for _, header := range data.Headers {
			if n := strings.Count(row[header], "\n") + 1; n > lines {
				lines = n
			}
		}
		height := float64(lines+cellPadLines) * lineHeight
		_, pageHeight := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+height > pageHeight-bottom {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i, header := range data.Headers {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.SetXY(x, y+lineHeight/2)
			align := "C"
			if i == 0 {
				pdf.SetFont("Arial", "B", 8)
			}
			pdf.MultiCell(widths[i], lineHeight, tr(row[header]), "", align, false)
			if i == 0 {
				pdf.SetFont("Arial", "", 8)
			}
			x += widths[i]
		}
		pdf.SetXY(10, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns int) []float64 {
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = pageWidth
		return widths
	}
	widths[0] = firstColumn
	rest := (pageWidth - firstColumn) / float64(columns-1)
	for i := 1; i < columns; i++ {
		widths[i] = rest
	}
	return widths
}
