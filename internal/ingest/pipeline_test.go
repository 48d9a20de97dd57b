package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/extract"
	"legal-analysis-platform/internal/ocr"
	"legal-analysis-platform/internal/uploadjobs"
	"legal-analysis-platform/internal/vectorstore"
)

type fakePDF struct {
	pages []extract.PDFPage
	err   error
}

func (f *fakePDF) ExtractPages(ctx context.Context, path string) ([]extract.PDFPage, error) {
	return f.pages, f.err
}

type fakeSource struct{ n int }

func (f *fakeSource) RenderPages(ctx context.Context, path string, dpi int) ([]ocr.Image, error) {
	return make([]ocr.Image, f.n), nil
}

type fakeEngine struct{}

func (f *fakeEngine) Recognize(ctx context.Context, img ocr.Image, lang string) (ocr.PageResult, error) {
	return ocr.PageResult{Text: "recognized page text", Confidence: 80}, nil
}

type charCounter struct{}

func (charCounter) Count(text string) int { return len([]rune(text)) }

type fakeEmbedCompleter struct{}

func (f *fakeEmbedCompleter) Embed(ctx context.Context, texts []string, model string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t))}
	}
	return out, nil
}

func buildPipeline(t *testing.T, pdf *fakePDF) (*Pipeline, *uploadjobs.Store, *DocumentStore) {
	t.Helper()
	ex := extract.New(pdf, nil)
	ocrProc := ocr.New(&fakeSource{n: 2}, &fakeEngine{}, 300, "por", 50)
	chunker := chunkembed.NewChunker(charCounter{}, 200, 20)
	embedder := chunkembed.NewEmbedder(&fakeEmbedCompleter{}, t.TempDir(), "text-embedding-ada-002", nil)
	store := vectorstore.NewMemStore()
	jobs := uploadjobs.New()
	docs := NewDocumentStore()

	p := New(ex, ocrProc, chunker, embedder, store, jobs, docs, t.TempDir(), nil)
	return p, jobs, docs
}

func TestRunCompletesTextHeavyDocument(t *testing.T) {
	pdf := &fakePDF{pages: []extract.PDFPage{
		{Text: "a long legible page of real extracted text with plenty of characters in it"},
		{Text: "another long legible page with plenty of legible text content on it too"},
	}}
	p, jobs, docs := buildPipeline(t, pdf)

	_, err := jobs.Create("up-1", "brief.pdf", 1024)
	require.NoError(t, err)

	p.Run(context.Background(), "up-1", []byte("raw bytes"), "brief.pdf", extract.TypePDFText)

	job, err := jobs.Get("up-1")
	require.NoError(t, err)
	require.Equal(t, uploadjobs.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "text_extraction", job.Result.Method)
	assert.Equal(t, 100, job.Progress)

	doc, err := docs.Get(job.Result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "brief.pdf", doc.Name)
	assert.Greater(t, doc.ChunkCount, 0)
}

func TestRunRoutesThroughOCRForScannedDocument(t *testing.T) {
	pdf := &fakePDF{pages: []extract.PDFPage{
		{Text: ""},
		{Text: "x"},
	}}
	p, jobs, _ := buildPipeline(t, pdf)

	_, err := jobs.Create("up-2", "scan.pdf", 2048)
	require.NoError(t, err)

	p.Run(context.Background(), "up-2", []byte("raw bytes"), "scan.pdf", extract.TypePDFText)

	job, err := jobs.Get("up-2")
	require.NoError(t, err)
	require.Equal(t, uploadjobs.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "ocr", job.Result.Method)
	require.NotNil(t, job.Result.OCRAvgConfidence)
	assert.InDelta(t, 80.0, *job.Result.OCRAvgConfidence, 0.01)
}

func TestRunRecordsErrorOnExtractFailure(t *testing.T) {
	pdf := &fakePDF{err: errors.New("broken pdf stream")}
	p, jobs, _ := buildPipeline(t, pdf)

	_, err := jobs.Create("up-3", "broken.pdf", 10)
	require.NoError(t, err)

	p.Run(context.Background(), "up-3", []byte("raw bytes"), "broken.pdf", extract.TypePDFText)

	job, err := jobs.Get("up-3")
	require.NoError(t, err)
	assert.Equal(t, uploadjobs.StatusError, job.Status)
	assert.NotEmpty(t, job.ErrorMessage)
	assert.Nil(t, job.Result)
}

func TestRunNeverPartiallyCompletesOnError(t *testing.T) {
	pdf := &fakePDF{pages: nil}
	p, jobs, _ := buildPipeline(t, pdf)

	_, err := jobs.Create("up-4", "empty.pdf", 10)
	require.NoError(t, err)

	p.Run(context.Background(), "up-4", []byte("raw bytes"), "empty.pdf", extract.TypePDFText)

	job, err := jobs.Get("up-4")
	require.NoError(t, err)
	assert.NotEqual(t, uploadjobs.StatusCompleted, job.Status)
}
