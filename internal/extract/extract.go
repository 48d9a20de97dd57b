// Package extract implements the Text Extractor (C2): detect document type
// and pull out text, flagging PDFs whose extracted text is too sparse to be
// anything but a scan. The concrete PDF/DOCX decoding libraries are external
// collaborators (Non-goal, per the purpose & scope); this package depends on
// injected PDFDecoder/DOCXDecoder interfaces the way the teacher's
// legal-gateway worker depends on an injected PythonClient rather than a
// concrete SDK.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"legal-analysis-platform/internal/apperr"
)

// DocumentType enumerates the detected document kinds.
type DocumentType string

const (
	TypePDFText    DocumentType = "PDF_TEXT"
	TypePDFScanned DocumentType = "PDF_SCANNED"
	TypeDOCX       DocumentType = "DOCX"
	TypeImage      DocumentType = "IMAGE"
)

// scannedCharsPerPageThreshold is the majority-of-pages low-density cutoff
// used to classify a PDF as scanned (§4.2).
const scannedCharsPerPageThreshold = 40

// PDFPage is one page's worth of naively extracted text, pre-OCR.
type PDFPage struct {
	Text string
}

// PDFDecoder renders/extracts raw per-page text from a PDF file. The real
// implementation is an external collaborator.
type PDFDecoder interface {
	ExtractPages(ctx context.Context, path string) ([]PDFPage, error)
}

// DOCXDecoder extracts ordered paragraph text from a DOCX file.
type DOCXDecoder interface {
	ExtractParagraphs(ctx context.Context, path string) ([]string, error)
}

// Result is the extractor's output contract.
type Result struct {
	Text         string
	PageCount    int
	DetectedType DocumentType
	IsScanned    bool
}

// Extractor implements the C2 contract.
type Extractor struct {
	pdf  PDFDecoder
	docx DOCXDecoder
}

// New builds an Extractor from the injected decoders.
func New(pdf PDFDecoder, docx DOCXDecoder) *Extractor {
	return &Extractor{pdf: pdf, docx: docx}
}

// Extract detects type and extracts text for the given declared type,
// classifying PDFs as scanned when character density is too low.
func (e *Extractor) Extract(ctx context.Context, path string, declaredType DocumentType) (Result, error) {
	switch declaredType {
	case TypePDFText, TypePDFScanned:
		return e.extractPDF(ctx, path)
	case TypeDOCX:
		return e.extractDOCX(ctx, path)
	case TypeImage:
		return Result{DetectedType: TypeImage, IsScanned: true, PageCount: 1}, nil
	default:
		return Result{}, apperr.CorruptInput("unsupported declared type %q for %s", declaredType, filepath.Base(path))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	if e.pdf == nil {
		return Result{}, apperr.CorruptInput("no pdf decoder configured")
	}
	pages, err := e.pdf.ExtractPages(ctx, path)
	if err != nil {
		return Result{}, apperr.CorruptInput("failed to extract pdf %s: %v", filepath.Base(path), err)
	}
	if len(pages) == 0 {
		return Result{}, apperr.CorruptInput("pdf %s contains no pages", filepath.Base(path))
	}

	var builder strings.Builder
	sparsePages := 0
	for i, p := range pages {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(p.Text)
		if len(strings.TrimSpace(p.Text)) < scannedCharsPerPageThreshold {
			sparsePages++
		}
	}

	scanned := sparsePages*2 > len(pages) // majority of pages below density threshold
	detected := TypePDFText
	if scanned {
		detected = TypePDFScanned
	}

	return Result{
		Text:         builder.String(),
		PageCount:    len(pages),
		DetectedType: detected,
		IsScanned:    scanned,
	}, nil
}

func (e *Extractor) extractDOCX(ctx context.Context, path string) (Result, error) {
	if e.docx == nil {
		return Result{}, apperr.CorruptInput("no docx decoder configured")
	}
	paragraphs, err := e.docx.ExtractParagraphs(ctx, path)
	if err != nil {
		return Result{}, apperr.CorruptInput("failed to extract docx %s: %v", filepath.Base(path), err)
	}
	return Result{
		Text:         strings.Join(paragraphs, "\n"),
		PageCount:    1,
		DetectedType: TypeDOCX,
		IsScanned:    false,
	}, nil
}
