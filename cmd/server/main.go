// Command server boots the legal analysis platform's HTTP surface: loads
// config, wires every component (C1-C14) together, mounts the gin router
// alongside a Prometheus /metrics endpoint, and serves until the process is
// killed. Bootstrap shape (gin.ReleaseMode, gin.New()+Logger+Recovery,
// log.Fatal(http.ListenAndServe(...))) is grounded on
// document-chunker/main.go's main(); the separate /metrics mux is grounded
// on cmd/metrics-server/main.go's promhttp.Handler() mounting.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"legal-analysis-platform/internal/agent"
	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/config"
	"legal-analysis-platform/internal/coordinator"
	"legal-analysis-platform/internal/extract"
	"legal-analysis-platform/internal/httpapi"
	"legal-analysis-platform/internal/ingest"
	"legal-analysis-platform/internal/llmclient"
	"legal-analysis-platform/internal/ocr"
	"legal-analysis-platform/internal/ollama"
	"legal-analysis-platform/internal/orchestrator"
	"legal-analysis-platform/internal/petition"
	"legal-analysis-platform/internal/tracing"
	"legal-analysis-platform/internal/uploadjobs"
	"legal-analysis-platform/internal/vectorstore"
)

// serviceName identifies this process to the tracing backend.
const serviceName = "legal-analysis-platform"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.Init(context.Background(), serviceName)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	ollamaHost := getenv("OLLAMA_HOST", "http://localhost:11434")
	ollamaClient := ollama.New(ollamaHost)
	logger.Info("ollama binding configured", zap.String("host", ollamaHost))

	gateway := llmclient.New(ollamaClient, logger)
	registry := agent.NewRegistry(gateway, cfg.LLMExpertTemperature, cfg.LLMAnalysisTemperature)

	// vectorstore.PGStore/pgx is the documented swap point for the
	// in-memory store (see DESIGN.md); MemStore is the default here the
	// same way the teacher never wires its Redis-backed alternative as
	// default.
	vectorStore := vectorstore.NewMemStore()
	logger.Info("vector store configured", zap.String("backend", "memory"), zap.String("configured_path", cfg.VectorStorePath))

	coord := coordinator.New(vectorStore, registry, gateway)
	analysisJobs := analysisjobs.New()

	uploadJobs := uploadjobs.New()
	documents := ingest.NewDocumentStore()

	extractor := extract.New(&unavailablePDFDecoder{}, &unavailableDOCXDecoder{})
	ocrProcessor := ocr.New(&unavailablePageSource{}, &unavailableEngine{}, cfg.OCRDPI, cfg.OCRLanguage, cfg.OCRLowConfThreshold)

	tokenCounter, err := chunkembed.NewTiktokenCounter(cfg.LLMAnalysisModel)
	if err != nil {
		logger.Fatal("token counter init failed", zap.Error(err))
	}
	chunker := chunkembed.NewChunker(tokenCounter, cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)
	embedder := chunkembed.NewEmbedder(ollamaClient, cfg.EmbeddingCacheDir, cfg.LLMEmbeddingModel, logger)

	// The same Embedder that chunks ingested documents also embeds ad-hoc
	// RAG queries for the orchestrator's CONSULTING_RAG step.
	orch := orchestrator.New(coord, registry, analysisJobs, embedder, logger)

	pipeline := ingest.New(extractor, ocrProcessor, chunker, embedder, vectorStore, uploadJobs, documents, cfg.UploadTempPath, logger)

	petitionStore := petition.NewStore()
	relevanceStep := petition.NewRelevanceStep(gateway, logger)
	prognosisStep := petition.NewPrognosisStep(gateway)
	draftStep := petition.NewDraftStep(gateway)
	workflow := petition.New(petitionStore, documents, vectorStore, orch, relevanceStep, prognosisStep, draftStep, embedder, logger)

	server := httpapi.New(uploadJobs, analysisJobs, documents, pipeline, vectorStore, orch, registry, workflow, gateway, cfg.UploadMaxMB, logger)
	router := httpapi.NewRouter(server, cfg.CORSOrigins)

	go serveMetrics(logger)

	addr := ":" + getenv("PORT", "8080")
	logger.Info("starting legal analysis platform", zap.String("addr", addr))
	log.Fatal(http.ListenAndServe(addr, router))
}

// serveMetrics mounts promhttp.Handler() on its own port, the way
// cmd/metrics-server/main.go keeps metrics off the main request mux.
func serveMetrics(logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := ":" + getenv("METRICS_PORT", "9109")
	logger.Info("starting metrics server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

// newLogger builds a production zap.Logger, lowering the level when
// LOG_LEVEL=debug is set (the teacher services always use zap.NewProduction
// uncustomized; LOG_LEVEL is the one documented knob this platform adds).
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// unavailablePDFDecoder/unavailableDOCXDecoder/unavailablePageSource/
// unavailableEngine are reference stand-ins for the real PDF/DOCX/OCR
// bindings, which are external collaborators (Non-goal) with no concrete
// implementation anywhere in the pack. They fail clearly rather than
// silently producing empty text, so an operator wiring a real binding in
// their place has an obvious seam (extract.New/ocr.New's injection points).
type unavailablePDFDecoder struct{}

func (unavailablePDFDecoder) ExtractPages(ctx context.Context, path string) ([]extract.PDFPage, error) {
	return nil, fmt.Errorf("no PDF decoder configured: wire a concrete extract.PDFDecoder in cmd/server/main.go")
}

type unavailableDOCXDecoder struct{}

func (unavailableDOCXDecoder) ExtractParagraphs(ctx context.Context, path string) ([]string, error) {
	return nil, fmt.Errorf("no DOCX decoder configured: wire a concrete extract.DOCXDecoder in cmd/server/main.go")
}

type unavailablePageSource struct{}

func (unavailablePageSource) RenderPages(ctx context.Context, path string, dpi int) ([]ocr.Image, error) {
	return nil, fmt.Errorf("no OCR page source configured: wire a concrete ocr.PageSource in cmd/server/main.go")
}

type unavailableEngine struct{}

func (unavailableEngine) Recognize(ctx context.Context, img ocr.Image, language string) (ocr.PageResult, error) {
	return ocr.PageResult{}, fmt.Errorf("no OCR engine configured: wire a concrete ocr.Engine in cmd/server/main.go")
}
