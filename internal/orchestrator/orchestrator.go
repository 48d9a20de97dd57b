// Package orchestrator implements the Orchestrator (C12): the end-to-end
// analysis flow over the Coordinator, with a background-execution wrapper
// around the Analysis Job Manager and a synchronous surface for the legacy
// endpoint. Progress checkpoints are grounded on the same
// processJob-style status publishing used by internal/ingest.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/coordinator"
	"legal-analysis-platform/internal/metrics"
	"legal-analysis-platform/internal/tracing"
	"legal-analysis-platform/internal/vectorstore"
)

var tracer = tracing.Tracer("legal-analysis-platform/orchestrator")

// AgentKnower is the subset of agent.Registry the orchestrator needs for
// synchronous pre-admission validation of selected agent ids.
type AgentKnower interface {
	Known(id string) bool
}

// QueryEmbedder computes an embedding for an ad-hoc RAG query, the same
// collaborator chunkembed.Embedder provides for document chunks during
// ingestion — reused here so step 1 (CONSULTING_RAG) has a real embedding
// to search with instead of a permanent empty vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Request is the input to Start/RunSync.
type Request struct {
	Prompt            string
	ExpertsSelected   []string
	AttorneysSelected []string
	DocumentIDs       []string
	QueryEmbedding    []float32
}

// Orchestrator runs the RAG -> delegate -> compile flow over a Coordinator.
type Orchestrator struct {
	coordinator *coordinator.Coordinator
	registry    AgentKnower
	jobs        *analysisjobs.Store
	embedder    QueryEmbedder
	logger      *zap.Logger
}

// New builds an Orchestrator. embedder may be nil, in which case RAG queries
// run with whatever embedding the caller supplied on Request.QueryEmbedding
// (possibly none, degrading to an empty context per §4.10).
func New(coord *coordinator.Coordinator, registry AgentKnower, jobs *analysisjobs.Store, embedder QueryEmbedder, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{coordinator: coord, registry: registry, jobs: jobs, embedder: embedder, logger: logger}
}

// Validate rejects unknown agent ids synchronously, before any job is
// created (§4.12 "Selected-agent validation happens synchronously before
// admission").
func (o *Orchestrator) Validate(req Request) error {
	for _, id := range req.ExpertsSelected {
		if !o.registry.Known(id) {
			return apperr.Validation("unknown expert id %q", id)
		}
	}
	for _, id := range req.AttorneysSelected {
		if !o.registry.Known(id) {
			return apperr.Validation("unknown attorney id %q", id)
		}
	}
	return nil
}

// Start admits an analysis job and runs the flow in the background. Callers
// must call Validate(req) first — Start does not repeat it.
func (o *Orchestrator) Start(ctx context.Context, analysisID string, req Request) error {
	if _, err := o.jobs.Create(analysisID, req.Prompt, req.ExpertsSelected, req.AttorneysSelected, req.DocumentIDs); err != nil {
		return err
	}
	go o.run(ctx, analysisID, req)
	return nil
}

// RunSync executes the flow inline and returns the full result, for the
// reimplemented legacy synchronous endpoint (§9).
func (o *Orchestrator) RunSync(ctx context.Context, req Request) (analysisjobs.Result, error) {
	return o.execute(ctx, req)
}

func (o *Orchestrator) run(ctx context.Context, analysisID string, req Request) {
	metrics.AnalysisJobsActive.Inc()
	defer metrics.AnalysisJobsActive.Dec()

	result, err := o.executeWithProgress(ctx, analysisID, req)
	if err != nil {
		o.logger.Error("orchestrator.failed", zap.String("analysis_id", analysisID), zap.Error(err))
		_ = o.jobs.RecordError(analysisID, err.Error(), apperr.Classify(err).String())
		metrics.AnalysisJobsTotal.WithLabelValues("ERROR").Inc()
		return
	}
	_ = o.jobs.RecordResult(analysisID, result)
	metrics.AnalysisJobsTotal.WithLabelValues("COMPLETED").Inc()
}

func (o *Orchestrator) publish(analysisID, label string, percent int) {
	if analysisID == "" {
		return
	}
	if err := o.jobs.UpdateStage(analysisID, label, percent); err != nil {
		o.logger.Warn("orchestrator.publish_failed", zap.String("analysis_id", analysisID), zap.Error(err))
	}
}

// execute runs the five-step flow. analysisID progress publishing is a
// no-op when called from RunSync (no job exists for the legacy surface).
func (o *Orchestrator) execute(ctx context.Context, req Request) (analysisjobs.Result, error) {
	return o.executeWithProgress(ctx, "", req)
}

func (o *Orchestrator) executeWithProgress(ctx context.Context, analysisID string, req Request) (analysisjobs.Result, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.execute")
	defer span.End()

	started := time.Now().UTC()

	// --- 1. CONSULTING_RAG (10%) ---
	var filter *vectorstore.Filter
	if len(req.DocumentIDs) > 0 {
		filter = &vectorstore.Filter{DocumentIDs: req.DocumentIDs}
	}
	contextDocs := o.coordinator.RAGQuery(ctx, o.queryEmbedding(ctx, req), 5, filter)
	o.publish(analysisID, "CONSULTING_RAG", 10)

	// --- 2. DELEGATING_EXPERTS (30%) ---
	var expertResults map[string]coordinator.DelegateResult
	if len(req.ExpertsSelected) > 0 {
		expertResults = o.coordinator.DelegateToExperts(ctx, req.Prompt, contextDocs, req.ExpertsSelected, nil)
	}
	o.publish(analysisID, "DELEGATING_EXPERTS", 30)

	// --- 3. DELEGATING_ATTORNEYS (55%) ---
	var attorneyResults map[string]coordinator.DelegateResult
	if len(req.AttorneysSelected) > 0 {
		attorneyResults = o.coordinator.DelegateToAttorneys(ctx, req.Prompt, contextDocs, req.AttorneysSelected, nil)
	}
	o.publish(analysisID, "DELEGATING_ATTORNEYS", 55)

	// --- 4. COMPILING (80%) ---
	compiled, err := o.coordinator.Compile(ctx, expertResults, attorneyResults, req.ExpertsSelected, req.AttorneysSelected, contextDocs, req.Prompt)
	if err != nil {
		return analysisjobs.Result{}, err
	}
	o.publish(analysisID, "COMPILING", 80)

	// --- 5. Record result ---
	result := analysisjobs.Result{
		CompiledAnswer:     compiled.Text,
		ExpertOpinions:     toOpinionViews(expertResults, req.ExpertsSelected),
		AttorneyOpinions:   toOpinionViews(attorneyResults, req.AttorneysSelected),
		DocumentsConsulted: req.DocumentIDs,
		ExpertsUsed:        req.ExpertsSelected,
		AttorneysUsed:      req.AttorneysSelected,
		Confidence:         compiled.Confidence,
		StartedAt:          started,
		EndedAt:            time.Now().UTC(),
	}
	return result, nil
}

// queryEmbedding returns req.QueryEmbedding if the caller already supplied
// one, otherwise embeds req.Prompt on the fly. A failure to embed degrades
// to no context rather than failing the whole analysis, consistent with
// RAGQuery's own "never propagate a RAG failure" rule (§4.10).
func (o *Orchestrator) queryEmbedding(ctx context.Context, req Request) []float32 {
	if len(req.QueryEmbedding) > 0 {
		return req.QueryEmbedding
	}
	if o.embedder == nil || req.Prompt == "" {
		return nil
	}

	vecs, err := o.embedder.Embed(ctx, []string{req.Prompt})
	if err != nil || len(vecs) != 1 {
		o.logger.Warn("orchestrator.query_embed_failed", zap.Error(err))
		return nil
	}

	out := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		out[i] = float32(v)
	}
	return out
}

// toOpinionViews walks order (the client's selection order, §5) instead of
// ranging the results map, so the HTTP response preserves it too.
func toOpinionViews(results map[string]coordinator.DelegateResult, order []string) []analysisjobs.AgentOpinionView {
	out := make([]analysisjobs.AgentOpinionView, 0, len(results))
	for _, id := range order {
		r, ok := results[id]
		if !ok {
			continue
		}
		if r.Failed {
			out = append(out, analysisjobs.AgentOpinionView{AgentID: id, Failed: true, ErrorMessage: r.Error})
			continue
		}
		out = append(out, analysisjobs.AgentOpinionView{
			AgentID:          id,
			AgentName:        r.Opinion.AgentName,
			AgentType:        r.Opinion.AgentType,
			Specialty:        r.Opinion.Specialty,
			OpinionText:      r.Opinion.Text,
			SelfConfidence:   r.Opinion.SelfConfidence,
			ReferencedDocs:   r.Opinion.ReferencedDocs,
			CitedLegislation: r.Opinion.CitedLegislation,
		})
	}
	return out
}
