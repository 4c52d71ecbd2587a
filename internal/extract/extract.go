// Package extract dispatches text extraction by format.Kind and assembles
// per-page results into a single sanitized document. Grounded on the
// teacher's internal/service/parser.go and internal/gcpclient/docai.go
// orchestration shape (dispatch by category, per-page output, page-break
// join); OCR and PDF rendering are injected interfaces per spec.md's
// framing of them as external collaborators.
package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ktiyab/coheara/internal/format"
	"github.com/ktiyab/coheara/internal/safety"
)

// PageBreak is inserted between concatenated pages.
const PageBreak = "\n\n--- Page Break ---\n\n"

// PageResult is one page's extraction output.
type PageResult struct {
	Text             string
	Confidence       float64
	WordConfidences  []float64
	Warnings         []string
}

// Result is the assembled, sanitized document text plus overall confidence.
type Result struct {
	Text       string
	Confidence float64
	Pages      []PageResult
	Warnings   []string
}

// OCREngine preprocesses and OCRs a single rendered page image.
type OCREngine interface {
	OCR(ctx context.Context, image []byte) (PageResult, error)
}

// PDFRenderer rasterizes one PDF page to PNG bytes, bounded by the
// image-dimension guard (max 4096px either axis, spec.md §5).
type PDFRenderer interface {
	RenderPage(ctx context.Context, pdf []byte, pageIndex int) ([]byte, error)
	PageCount(pdf []byte) (int, error)
}

// NativePDFExtractor extracts embedded text per page from a digital PDF.
type NativePDFExtractor interface {
	ExtractPage(pdf []byte, pageIndex int) (PageResult, error)
	PageCount(pdf []byte) (int, error)
}

// Extractor ties the injected collaborators to the format-dispatch rule.
type Extractor struct {
	OCR      OCREngine
	Renderer PDFRenderer
	Native   NativePDFExtractor
}

// confidenceFloor is the minimum overall confidence, one value shared by
// every extraction method; a
// floor below this is clamped up so a single bad page can't zero a whole
// otherwise-solid document's score.
const confidenceFloor = 0.05

// Extract dispatches by kind and returns the assembled, sanitized result.
func (e *Extractor) Extract(ctx context.Context, kind format.Kind, data []byte) (*Result, error) {
	switch kind {
	case format.PlainText:
		return e.extractPlainText(data)
	case format.DigitalPdf:
		return e.extractPDF(ctx, data, e.extractNativePage)
	case format.ScannedPdf:
		return e.extractPDF(ctx, data, e.extractScannedPage)
	case format.Image:
		return e.extractImage(ctx, data)
	default:
		return nil, fmt.Errorf("extract.Extract: unsupported format")
	}
}

func (e *Extractor) extractPlainText(data []byte) (*Result, error) {
	text := string(data)
	sanitized := safety.SanitizePatientInput(text, len(text)+1)
	return &Result{
		Text:       sanitized.Text,
		Confidence: 0.99,
		Pages:      []PageResult{{Text: sanitized.Text, Confidence: 0.99}},
		Warnings:   sanitized.Warnings,
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (*Result, error) {
	if e.OCR == nil {
		return nil, fmt.Errorf("extract.extractImage: no OCR engine configured")
	}
	page, err := e.OCR.OCR(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract.extractImage: %w", err)
	}
	page = sanitizePage(page)
	return &Result{Text: page.Text, Confidence: page.Confidence, Pages: []PageResult{page}, Warnings: page.Warnings}, nil
}

type pageFunc func(ctx context.Context, data []byte, pageIndex int) (PageResult, error)

func (e *Extractor) extractNativePage(ctx context.Context, data []byte, pageIndex int) (PageResult, error) {
	if e.Native == nil {
		return PageResult{}, fmt.Errorf("extract: no native PDF extractor configured")
	}
	return e.Native.ExtractPage(data, pageIndex)
}

func (e *Extractor) extractScannedPage(ctx context.Context, data []byte, pageIndex int) (PageResult, error) {
	if e.Renderer == nil || e.OCR == nil {
		return PageResult{}, fmt.Errorf("extract: no renderer/OCR configured for scanned pdf")
	}
	img, err := e.Renderer.RenderPage(ctx, data, pageIndex)
	if err != nil {
		return PageResult{}, fmt.Errorf("extract: render page %d: %w", pageIndex, err)
	}
	return e.OCR.OCR(ctx, img)
}

// extractPDF fans out page extraction concurrently via errgroup, the way
// jbouey-msp-flake/appliance fans out health checks, then joins pages in
// order with PageBreak.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, fn pageFunc) (*Result, error) {
	var pageCount int
	var err error
	if e.Native != nil {
		pageCount, err = e.Native.PageCount(data)
	} else if e.Renderer != nil {
		pageCount, err = e.Renderer.PageCount(data)
	} else {
		return nil, fmt.Errorf("extract.extractPDF: no PDF collaborator configured")
	}
	if err != nil {
		return nil, fmt.Errorf("extract.extractPDF: %w", err)
	}

	pages := make([]PageResult, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pageCount; i++ {
		i := i
		g.Go(func() error {
			p, err := fn(gctx, data, i)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			pages[i] = sanitizePage(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract.extractPDF: %w", err)
	}

	return joinPages(pages), nil
}

func sanitizePage(p PageResult) PageResult {
	s := safety.SanitizePatientInput(p.Text, len(p.Text)+1)
	p.Text = s.Text
	p.Warnings = append(p.Warnings, s.Warnings...)
	return p
}

// joinPages concatenates page text with PageBreak and computes a
// confidence-weighted mean, floored at confidenceFloor.
func joinPages(pages []PageResult) *Result {
	var b strings.Builder
	var weighted, totalWeight float64
	var warnings []string
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageBreak)
		}
		b.WriteString(p.Text)
		weight := float64(len(p.Text))
		if weight == 0 {
			weight = 1
		}
		weighted += p.Confidence * weight
		totalWeight += weight
		warnings = append(warnings, p.Warnings...)
	}
	overall := confidenceFloor
	if totalWeight > 0 {
		overall = weighted / totalWeight
		if overall < confidenceFloor {
			overall = confidenceFloor
		}
	}
	return &Result{Text: b.String(), Confidence: overall, Pages: pages, Warnings: warnings}
}
