package pdftext

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// PdfToHTML converts PDFs into positioned XML using the pdftohtml CLI
// tool. The XML keeps each line's top/left offsets, which the docket
// parser queries geometrically.
type PdfToHTML struct {
	binPath string
}

// NewPdfToHTML creates a PdfToHTML converter. If binPath is empty,
// "pdftohtml" is used.
func NewPdfToHTML(binPath string) *PdfToHTML {
	if binPath == "" {
		binPath = "pdftohtml"
	}
	return &PdfToHTML{binPath: binPath}
}

// ExtractXML runs pdftohtml -xml on the given PDF and returns the
// positioned layout document.
func (p *PdfToHTML) ExtractXML(ctx context.Context, pdfPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-xml", "-i", "-stdout", pdfPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "pdftext: pdftohtml failed for %s: %s", pdfPath, stderr.String())
	}

	return stdout.Bytes(), nil
}
