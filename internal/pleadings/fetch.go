package pleadings

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/red-door-collective/eviction-tracker/internal/caselink"
	"github.com/red-door-collective/eviction-tracker/internal/config"
	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/pdftext"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// Pipeline materializes pleading document text and writes structured
// facts back onto cases.
type Pipeline struct {
	store       store.Store
	native      pdftext.Extractor
	ocr         pdftext.Extractor
	httpClient  *http.Client
	limiter     *rate.Limiter
	concurrency int
}

// NewPipeline wires the extraction pipeline from configuration.
func NewPipeline(cfg config.DocumentsConfig, pdfCfg config.PDFConfig, st store.Store) *Pipeline {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		store:       st,
		native:      pdftext.NewNative(pdfCfg),
		ocr:         pdftext.NewOCR(pdfCfg),
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		concurrency: concurrency,
	}
}

// fetchPDF downloads a pleading document into a temp file. Portal image
// paths are mapped onto the public document host first.
func (p *Pipeline) fetchPDF(ctx context.Context, docURL string) (string, func(), error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", nil, eris.Wrap(err, "pleadings: rate limit")
	}
	fetchURL := docURL
	if !strings.HasPrefix(fetchURL, "http") {
		fetchURL = caselink.DocumentURL(docURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", nil, eris.Wrap(err, "pleadings: build request")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", nil, eris.Wrapf(err, "pleadings: fetch %s", fetchURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, eris.Errorf("pleadings: fetch %s returned %d", fetchURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "pleading-*.pdf")
	if err != nil {
		return "", nil, eris.Wrap(err, "pleadings: temp pdf")
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, eris.Wrapf(err, "pleadings: download %s", fetchURL)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "pleadings: close temp pdf")
	}
	return tmp.Name(), cleanup, nil
}

// ExtractDocumentText fetches one document, extracts its text, and
// classifies it. Native extraction is tried first; unrecognized
// documents get one OCR pass over the leading pages. Text is persisted
// either way, with kind left null when both passes fail to classify.
func (p *Pipeline) ExtractDocumentText(ctx context.Context, doc *model.PleadingDocument) error {
	pdfPath, cleanup, err := p.fetchPDF(ctx, doc.URL)
	if err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToExtractText, err)
	}
	defer cleanup()

	text, err := p.native.ExtractText(ctx, pdfPath)
	if err != nil {
		return p.markFailed(ctx, doc, model.StatusFailedToExtractText, err)
	}
	kind := Classify(text)

	if kind == nil {
		ocrText, ocrErr := p.ocr.ExtractText(ctx, pdfPath)
		if ocrErr != nil {
			return p.markFailed(ctx, doc, model.StatusFailedToExtractTextOCR, ocrErr)
		}
		if ocrKind := Classify(ocrText); ocrKind != nil {
			text, kind = ocrText, ocrKind
		}
	}

	doc.Text = &text
	doc.Kind = kind
	doc.Status = nil
	if err := p.store.UpsertPleadingDocument(ctx, doc); err != nil {
		return eris.Wrapf(err, "pleadings: persist %s", doc.URL)
	}
	zap.L().Debug("extracted pleading document",
		zap.String("url", doc.URL),
		zap.Bool("classified", kind != nil),
	)
	return nil
}

// markFailed records the failure status on the document. The original
// error is logged, not returned: one bad document never stops a sweep.
func (p *Pipeline) markFailed(ctx context.Context, doc *model.PleadingDocument, status model.PleadingStatus, cause error) error {
	zap.L().Warn("pleading document extraction failed",
		zap.String("url", doc.URL),
		zap.Error(cause),
	)
	doc.Status = &status
	if err := p.store.UpsertPleadingDocument(ctx, doc); err != nil {
		return eris.Wrapf(err, "pleadings: mark %s failed", doc.URL)
	}
	return nil
}

// BulkExtractDetails runs text extraction over every document that has
// neither text nor a failure status.
func (p *Pipeline) BulkExtractDetails(ctx context.Context) error {
	docs, err := p.store.ListPleadingDocuments(ctx, store.DocumentFilter{NeedsText: true})
	if err != nil {
		return err
	}
	zap.L().Info("extracting pleading document details", zap.Int("documents", len(docs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			return p.ExtractDocumentText(gctx, &doc)
		})
	}
	return g.Wait()
}

// ClassifyDocuments re-runs classification over documents that already
// carry text. This is the one sweep allowed to change an existing kind.
func (p *Pipeline) ClassifyDocuments(ctx context.Context, kind *model.PleadingKind) error {
	docs, err := p.store.ListPleadingDocuments(ctx, store.DocumentFilter{Kind: kind})
	if err != nil {
		return err
	}
	reclassified := 0
	for i := range docs {
		doc := docs[i]
		if doc.Text == nil {
			continue
		}
		next := Classify(*doc.Text)
		if !kindChanged(doc.Kind, next) {
			continue
		}
		doc.Kind = next
		if err := p.store.UpsertPleadingDocument(ctx, &doc); err != nil {
			return eris.Wrapf(err, "pleadings: reclassify %s", doc.URL)
		}
		reclassified++
	}
	zap.L().Info("classified documents",
		zap.Int("scanned", len(docs)),
		zap.Int("reclassified", reclassified),
	)
	return nil
}

func kindChanged(a, b *model.PleadingKind) bool {
	if (a == nil) != (b == nil) {
		return true
	}
	return a != nil && *a != *b
}

// TryOCRDetainerWarrants re-extracts unclassified documents via OCR,
// one document per docket, newest window first.
func (p *Pipeline) TryOCRDetainerWarrants(ctx context.Context, since time.Time) error {
	docs, err := p.store.OCRCandidates(ctx, since)
	if err != nil {
		return err
	}
	zap.L().Info("attempting ocr on unclassified documents", zap.Int("documents", len(docs)))

	for i := range docs {
		doc := docs[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		pdfPath, cleanup, err := p.fetchPDF(ctx, doc.URL)
		if err != nil {
			if err := p.markFailed(ctx, &doc, model.StatusFailedToExtractTextOCR, err); err != nil {
				return err
			}
			continue
		}
		text, err := p.ocr.ExtractText(ctx, pdfPath)
		cleanup()
		if err != nil {
			if err := p.markFailed(ctx, &doc, model.StatusFailedToExtractTextOCR, err); err != nil {
				return err
			}
			continue
		}
		doc.Text = &text
		doc.Kind = Classify(text)
		doc.Status = nil
		if err := p.store.UpsertPleadingDocument(ctx, &doc); err != nil {
			return eris.Wrapf(err, "pleadings: persist ocr %s", doc.URL)
		}
	}
	return nil
}
