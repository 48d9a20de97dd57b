// Package metrics registers the process's prometheus counters and
// histograms, replacing the teacher's hand-rolled histogram/metricsState
// in cognitive-microservice.go with github.com/prometheus/client_golang —
// already the teacher's own go.mod dependency, so this is a like-for-like
// swap rather than a new one. Covers the LLM Gateway (C1), OCR Processor
// (C3), Ingestion Pipeline (C6), and Orchestrator (C12).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMCallsTotal counts every LLM Gateway call by model and outcome
	// ("ok", "retry", "rate_limit", "timeout", "failed").
	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_platform_llm_calls_total",
		Help: "Total LLM Gateway calls by model and outcome.",
	}, []string{"model", "outcome"})

	// LLMCallDuration observes wall-clock latency of LLM Gateway calls.
	LLMCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legal_platform_llm_call_duration_seconds",
		Help:    "LLM Gateway call latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"model"})

	// OCRPagesProcessedTotal counts pages run through the OCR Processor by
	// confidence bucket ("high", "low").
	OCRPagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_platform_ocr_pages_processed_total",
		Help: "Total pages processed by the OCR Processor, by confidence bucket.",
	}, []string{"confidence_bucket"})

	// IngestJobsActive is a gauge of in-flight upload ingestion jobs.
	IngestJobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legal_platform_ingest_jobs_active",
		Help: "Number of upload ingestion jobs currently running.",
	})

	// IngestJobsTotal counts completed ingestion jobs by terminal status.
	IngestJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_platform_ingest_jobs_total",
		Help: "Total ingestion jobs by terminal status.",
	}, []string{"status"})

	// AnalysisJobsActive is a gauge of in-flight analysis jobs.
	AnalysisJobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legal_platform_analysis_jobs_active",
		Help: "Number of analysis jobs currently running.",
	})

	// AnalysisJobsTotal counts completed analysis jobs by terminal status.
	AnalysisJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_platform_analysis_jobs_total",
		Help: "Total analysis jobs by terminal status.",
	}, []string{"status"})
)
