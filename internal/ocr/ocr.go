// Package ocr implements the OCR Processor (C3): rasterizes scanned PDF/image
// pages at a configured DPI, runs them through an injected OCR engine, and
// assembles a page-delimited text document while tracking low-confidence
// pages. The concrete OCR engine (e.g. a Tesseract binding) is an external
// collaborator; this package depends on the Engine interface the same way
// the teacher's legal-gateway worker depends on an injected PythonClient.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"legal-analysis-platform/internal/apperr"
)

// PageSource renders every page of a document to an image at the given DPI.
// The concrete rasterizer (pdftoppm, poppler bindings, etc.) is external.
type PageSource interface {
	RenderPages(ctx context.Context, path string, dpi int) ([]Image, error)
}

// Image is an opaque rendered page buffer handed to the OCR Engine.
type Image struct {
	Bytes []byte
}

// Filter is one named step of the §4.3 per-page preprocessing pipeline
// (render → preprocess → OCR). The concrete image-processing library is an
// external collaborator the same way PageSource/Engine are; filters default
// to identity so the pipeline and its tests can assert ordering without one.
type Filter struct {
	Name  string
	Apply func(Image) Image
}

func identity(img Image) Image { return img }

// defaultFilters is the §4.3 preprocessing order: grayscale, contrast boost,
// binarize at mid-threshold, median denoise, sharpen.
func defaultFilters() []Filter {
	return []Filter{
		{Name: "grayscale", Apply: identity},
		{Name: "contrast_boost", Apply: identity},
		{Name: "binarize", Apply: identity},
		{Name: "median_denoise", Apply: identity},
		{Name: "sharpen", Apply: identity},
	}
}

// Engine runs OCR over a single rendered page image.
type Engine interface {
	Recognize(ctx context.Context, img Image, language string) (PageResult, error)
}

// PageResult is one page's OCR output plus its confidence score in [0,100].
type PageResult struct {
	Text       string
	Confidence int
}

// Result is the processor's output contract.
type Result struct {
	Text               string
	PageCount          int
	LowConfidencePages []int // 1-indexed page numbers below the configured threshold
	MeanConfidence     float64
}

// Processor wires a PageSource and Engine together with the configured DPI,
// language, and low-confidence threshold.
type Processor struct {
	source    PageSource
	engine    Engine
	filters   []Filter
	dpi       int
	language  string
	threshold int
}

// New builds a Processor using the default §4.3 preprocessing pipeline.
// dpi/language/threshold come from Config's OCR_DPI/OCR_LANGUAGE/
// OCR_LOW_CONF_THRESHOLD.
func New(source PageSource, engine Engine, dpi int, language string, threshold int) *Processor {
	return NewWithFilters(source, engine, defaultFilters(), dpi, language, threshold)
}

// NewWithFilters builds a Processor against an arbitrary ordered filter
// pipeline, the seam a real image-processing binding (or a test asserting
// filter ordering) would use in place of the identity defaults.
func NewWithFilters(source PageSource, engine Engine, filters []Filter, dpi int, language string, threshold int) *Processor {
	return &Processor{source: source, engine: engine, filters: filters, dpi: dpi, language: language, threshold: threshold}
}

// Process rasterizes path at the configured DPI, OCRs each page, and joins
// them with a "--- PAGE N ---" separator, tracking pages under threshold.
func (p *Processor) Process(ctx context.Context, path string) (Result, error) {
	if p.source == nil || p.engine == nil {
		return Result{}, apperr.CorruptInput("ocr processor not configured")
	}

	images, err := p.source.RenderPages(ctx, path, p.dpi)
	if err != nil {
		return Result{}, apperr.CorruptInput("failed to rasterize %s: %v", path, err)
	}
	if len(images) == 0 {
		return Result{}, apperr.CorruptInput("no pages rendered for %s", path)
	}

	var builder strings.Builder
	var lowConf []int
	var confSum float64

	for i, img := range images {
		pageNum := i + 1
		for _, f := range p.filters {
			img = f.Apply(img)
		}

		res, err := p.engine.Recognize(ctx, img, p.language)
		if err != nil {
			return Result{}, apperr.Upstream("ocr failed on page %d: %v", pageNum, err)
		}

		if i > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "--- PAGE %d ---\n%s", pageNum, res.Text)

		confSum += float64(res.Confidence)
		if res.Confidence < p.threshold {
			lowConf = append(lowConf, pageNum)
		}
	}

	return Result{
		Text:               builder.String(),
		PageCount:          len(images),
		LowConfidencePages: lowConf,
		MeanConfidence:     confSum / float64(len(images)),
	}, nil
}
