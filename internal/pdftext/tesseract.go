package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Tesseract recognizes text in scanned PDFs by rasterizing pages with
// pdftoppm and feeding each image through the tesseract CLI. Recognition
// stops after maxPages pages; warrants and judgment orders fit well
// inside that bound and some scanned exhibits run to hundreds of pages.
type Tesseract struct {
	pdftoppmPath  string
	tesseractPath string
	maxPages      int
}

// NewTesseract creates the OCR extractor. Empty paths fall back to the
// bare binary names; maxPages <= 0 means 6.
func NewTesseract(pdftoppmPath, tesseractPath string, maxPages int) *Tesseract {
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	if maxPages <= 0 {
		maxPages = 6
	}
	return &Tesseract{
		pdftoppmPath:  pdftoppmPath,
		tesseractPath: tesseractPath,
		maxPages:      maxPages,
	}
}

// ExtractText rasterizes up to maxPages pages and concatenates the
// recognized text in page order.
func (t *Tesseract) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "pdftext-ocr-*")
	if err != nil {
		return "", eris.Wrap(err, "pdftext: create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, t.pdftoppmPath,
		"-png", "-r", "300",
		"-f", "1", "-l", strconv.Itoa(t.maxPages),
		pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: pdftoppm failed for %s: %s", pdfPath, stderr.String())
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", eris.Wrap(err, "pdftext: glob rasterized pages")
	}
	if len(pages) == 0 {
		return "", eris.Errorf("pdftext: no pages rasterized from %s", pdfPath)
	}
	sort.Strings(pages)

	recognized := make([]string, 0, len(pages))
	for _, page := range pages {
		text, err := t.recognize(ctx, page)
		if err != nil {
			return "", err
		}
		recognized = append(recognized, text)
	}
	// Pages are delimited with a pipe so downstream regexes can span them.
	return strings.Join(recognized, " | "), nil
}

func (t *Tesseract) recognize(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.tesseractPath, imagePath, "stdout")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: tesseract failed for %s: %s", imagePath, stderr.String())
	}
	return stdout.String(), nil
}
