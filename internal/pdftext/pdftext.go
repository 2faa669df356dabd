// Package pdftext extracts text from pleading PDFs. Native extraction
// via pdftotext is tried first; scanned documents fall back to
// rasterizing with pdftoppm and running tesseract over the pages.
package pdftext

import (
	"context"

	"github.com/red-door-collective/eviction-tracker/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewNative returns the pdftotext extractor configured by cfg.
func NewNative(cfg config.PDFConfig) Extractor {
	return NewPdfToText(cfg.PdfToTextPath)
}

// NewOCR returns the rasterize-and-recognize extractor configured by cfg.
func NewOCR(cfg config.PDFConfig) Extractor {
	return NewTesseract(cfg.PdfToPPMPath, cfg.TesseractPath, cfg.OCRMaxPages)
}
