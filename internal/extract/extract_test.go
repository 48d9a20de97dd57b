package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDFDecoder struct {
	pages []PDFPage
	err   error
}

func (f *fakePDFDecoder) ExtractPages(ctx context.Context, path string) ([]PDFPage, error) {
	return f.pages, f.err
}

type fakeDOCXDecoder struct {
	paragraphs []string
	err        error
}

func (f *fakeDOCXDecoder) ExtractParagraphs(ctx context.Context, path string) ([]string, error) {
	return f.paragraphs, f.err
}

func TestExtractPDFTextHeavy(t *testing.T) {
	pdf := &fakePDFDecoder{pages: []PDFPage{
		{Text: "this is a long page of real extracted text content, plenty of characters here"},
		{Text: "another dense page with lots of legible extracted content on it as well"},
	}}
	ex := New(pdf, nil)

	res, err := ex.Extract(context.Background(), "doc.pdf", TypePDFText)
	require.NoError(t, err)
	assert.Equal(t, TypePDFText, res.DetectedType)
	assert.False(t, res.IsScanned)
	assert.Equal(t, 2, res.PageCount)
}

func TestExtractPDFScannedByDensity(t *testing.T) {
	pdf := &fakePDFDecoder{pages: []PDFPage{
		{Text: ""},
		{Text: "x"},
		{Text: "a long legible third page with enough text to pass the density bar"},
	}}
	ex := New(pdf, nil)

	res, err := ex.Extract(context.Background(), "doc.pdf", TypePDFText)
	require.NoError(t, err)
	assert.Equal(t, TypePDFScanned, res.DetectedType)
	assert.True(t, res.IsScanned)
}

func TestExtractPDFEmptyIsCorrupt(t *testing.T) {
	pdf := &fakePDFDecoder{pages: nil}
	ex := New(pdf, nil)

	_, err := ex.Extract(context.Background(), "doc.pdf", TypePDFText)
	require.Error(t, err)
}

func TestExtractPDFDecoderError(t *testing.T) {
	pdf := &fakePDFDecoder{err: errors.New("broken stream")}
	ex := New(pdf, nil)

	_, err := ex.Extract(context.Background(), "doc.pdf", TypePDFText)
	require.Error(t, err)
}

func TestExtractDOCX(t *testing.T) {
	docx := &fakeDOCXDecoder{paragraphs: []string{"first paragraph", "second paragraph"}}
	ex := New(nil, docx)

	res, err := ex.Extract(context.Background(), "doc.docx", TypeDOCX)
	require.NoError(t, err)
	assert.Equal(t, "first paragraph\nsecond paragraph", res.Text)
	assert.Equal(t, TypeDOCX, res.DetectedType)
}

func TestExtractImagePassesThrough(t *testing.T) {
	ex := New(nil, nil)

	res, err := ex.Extract(context.Background(), "scan.png", TypeImage)
	require.NoError(t, err)
	assert.True(t, res.IsScanned)
	assert.Equal(t, TypeImage, res.DetectedType)
}

func TestExtractUnsupportedType(t *testing.T) {
	ex := New(nil, nil)

	_, err := ex.Extract(context.Background(), "doc.xyz", DocumentType("XYZ"))
	require.Error(t, err)
}
