// Package ingest implements the Ingestion Pipeline (C6): orchestrates
// Extract -> OCR? -> Chunk -> Embed -> Persist, publishing progress into
// the Upload Job Manager. Stage ranges follow the adaptive-range table from
// the component design (OCR runs insert a 30-60 OCR window and move the
// chunk/embed/persist windows later and narrower). Progress-publishing
// shape is grounded on the teacher's
// legal-gateway/worker.go processJob/processDocument.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/extract"
	"legal-analysis-platform/internal/metrics"
	"legal-analysis-platform/internal/ocr"
	"legal-analysis-platform/internal/tracing"
	"legal-analysis-platform/internal/uploadjobs"
	"legal-analysis-platform/internal/vectorstore"
)

var tracer = tracing.Tracer("legal-analysis-platform/ingest")

// stageRange is the [start,end) progress band for one macro-stage.
type stageRange struct {
	start, end int
}

// ranges holds the adaptive non-OCR/OCR progress bands from §4.6.
type ranges struct {
	save, detect, extractText, ocrStage, chunk, embed, persist, finalize stageRange
}

var nonOCRRanges = ranges{
	save:        stageRange{0, 10},
	detect:      stageRange{10, 15},
	extractText: stageRange{15, 35},
	chunk:       stageRange{35, 50},
	embed:       stageRange{55, 70},
	persist:     stageRange{75, 95},
	finalize:    stageRange{95, 100},
}

var ocrRanges = ranges{
	save:        stageRange{0, 10},
	detect:      stageRange{10, 15},
	extractText: stageRange{15, 30},
	ocrStage:    stageRange{30, 60},
	chunk:       stageRange{60, 70},
	embed:       stageRange{75, 85},
	persist:     stageRange{90, 97},
	finalize:    stageRange{97, 100},
}

// Pipeline wires the C2-C5 collaborators together behind the C6 contract.
type Pipeline struct {
	extractor *extract.Extractor
	ocr       *ocr.Processor
	chunker   *chunkembed.Chunker
	embedder  *chunkembed.Embedder
	store     vectorstore.Store
	jobs      *uploadjobs.Store
	docs      *DocumentStore
	tempDir   string
	logger    *zap.Logger
}

// New builds a Pipeline from its collaborators.
func New(
	extractor *extract.Extractor,
	ocrProcessor *ocr.Processor,
	chunker *chunkembed.Chunker,
	embedder *chunkembed.Embedder,
	store vectorstore.Store,
	jobs *uploadjobs.Store,
	docs *DocumentStore,
	tempDir string,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		ocr:       ocrProcessor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		jobs:      jobs,
		docs:      docs,
		tempDir:   tempDir,
		logger:    logger,
	}
}

// Run executes the full ingestion flow for an already-admitted upload job,
// intended to be launched as `go pipeline.Run(...)` by the HTTP handler.
// It never returns an error to the caller; failures are recorded onto the
// job via RecordError, matching C6's "void background procedure" contract.
func (p *Pipeline) Run(ctx context.Context, uploadID string, fileBytes []byte, originalName string, declaredType extract.DocumentType) {
	metrics.IngestJobsActive.Inc()
	defer metrics.IngestJobsActive.Dec()

	if err := p.run(ctx, uploadID, fileBytes, originalName, declaredType); err != nil {
		p.logger.Error("ingest.failed", zap.String("upload_id", uploadID), zap.Error(err))
		tag := apperr.Classify(err).String()
		_ = p.jobs.RecordError(uploadID, err.Error(), tag)
		metrics.IngestJobsTotal.WithLabelValues("ERROR").Inc()
		return
	}
	metrics.IngestJobsTotal.WithLabelValues("COMPLETED").Inc()
}

func (p *Pipeline) run(ctx context.Context, uploadID string, fileBytes []byte, originalName string, declaredType extract.DocumentType) error {
	ctx, span := tracer.Start(ctx, "ingest.pipeline.run")
	defer span.End()

	_ = p.jobs.MarkSaving(uploadID)

	// --- Save ---
	path, err := p.saveFile(uploadID, originalName, fileBytes)
	if err != nil {
		return apperr.CorruptInput("failed to save upload: %v", err)
	}
	p.publish(uploadID, "Saving file on server", nonOCRRanges.save.end)

	// --- Detect type (folded into the extract call; this stage is a
	// label-only checkpoint since the declared type is already known) ---
	p.publish(uploadID, "Detecting document type", nonOCRRanges.detect.end)

	// --- Extract text ---
	extracted, err := p.extractor.Extract(ctx, path, declaredType)
	if err != nil {
		return err
	}

	r := nonOCRRanges
	if extracted.IsScanned {
		r = ocrRanges
	}
	p.publish(uploadID, "Extracting text", r.extractText.end)

	text := extracted.Text
	method := "text_extraction"
	var ocrAvgConf *float64

	// --- OCR (only when the extractor reports a scanned document) ---
	if extracted.IsScanned {
		ocrRes, err := p.ocr.Process(ctx, path)
		if err != nil {
			return err
		}
		text = ocrRes.Text
		method = "ocr"
		conf := ocrRes.MeanConfidence
		ocrAvgConf = &conf
		metrics.OCRPagesProcessedTotal.WithLabelValues("low").Add(float64(len(ocrRes.LowConfidencePages)))
		metrics.OCRPagesProcessedTotal.WithLabelValues("high").Add(float64(ocrRes.PageCount - len(ocrRes.LowConfidencePages)))
		p.publish(uploadID, fmt.Sprintf("OCR running (%d pages detected)", ocrRes.PageCount), r.ocrStage.end)
	}

	// --- Chunk ---
	chunks := p.chunker.Split(text)
	p.publish(uploadID, fmt.Sprintf("Text split into %d chunks", len(chunks)), r.chunk.end)

	// --- Embed ---
	documentID := uuid.NewString()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	p.publish(uploadID, fmt.Sprintf("Embedding %d chunks", len(chunks)), r.embed.end)

	// --- Persist ---
	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.ChunkRecord{
			Index:     c.Index,
			Text:      c.Text,
			Embedding: toFloat32(embeddings[i]),
		}
	}
	if err := p.store.Upsert(ctx, documentID, records); err != nil {
		return err
	}
	p.publish(uploadID, "Storing in vector store", r.persist.end)

	// --- Finalize ---
	doc := Document{
		ID:               documentID,
		Name:             originalName,
		SizeBytes:        int64(len(fileBytes)),
		Type:             string(extracted.DetectedType),
		PageCount:        extracted.PageCount,
		Method:           method,
		OCRAvgConfidence: ocrAvgConf,
		ChunkCount:       len(chunks),
		CreatedAt:        time.Now().UTC(),
	}
	p.docs.Put(doc)

	return p.jobs.RecordResult(uploadID, uploadjobs.Result{
		DocumentID:       documentID,
		PageCount:        doc.PageCount,
		Method:           doc.Method,
		OCRAvgConfidence: doc.OCRAvgConfidence,
		ChunkCount:       doc.ChunkCount,
	})
}

func (p *Pipeline) saveFile(uploadID, originalName string, data []byte) (string, error) {
	ext := filepath.Ext(originalName)
	path := filepath.Join(p.tempDir, uploadID+ext)
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Pipeline) publish(uploadID, label string, percent int) {
	if err := p.jobs.UpdateStage(uploadID, label, percent); err != nil {
		p.logger.Warn("ingest.publish_failed", zap.String("upload_id", uploadID), zap.Error(err))
	}
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
