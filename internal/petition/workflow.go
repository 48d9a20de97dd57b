// Package petition's Workflow wires the petition state machine to the
// Ingestion Pipeline's DocumentStore, the Orchestrator (C12), and the three
// steps declared above: AnalyzeDocuments composes the document-relevance
// step, and Analyze composes the Orchestrator with the prognosis and draft
// steps to produce the full petition analysis (§4.13).
package petition

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/ingest"
	"legal-analysis-platform/internal/orchestrator"
	"legal-analysis-platform/internal/tracing"
	"legal-analysis-platform/internal/vectorstore"
)

var tracer = tracing.Tracer("legal-analysis-platform/petition")

// maxPetitionTextChars bounds how much of the petition's own text is sent to
// the document-relevance prompt.
const maxPetitionTextChars = 8000

// ragContextChunks is the number of chunks retrieved for the
// document-relevance prompt's RAG context (§4.13 "up to 5").
const ragContextChunks = 5

// QueryEmbedder computes an embedding for an ad-hoc RAG query, mirroring
// orchestrator.QueryEmbedder — the Workflow needs its own RAG pass for the
// document-relevance step, which runs before any orchestrator.Request exists.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Workflow composes the petition state machine with the ingestion document
// store, the vector store (for RAG context), the orchestrator, and the
// relevance/prognosis/draft steps.
type Workflow struct {
	store        *Store
	documents    *ingest.DocumentStore
	vectorStore  vectorstore.Store
	orchestrator *orchestrator.Orchestrator
	relevance    *RelevanceStep
	prognosis    *PrognosisStep
	draft        *DraftStep
	embedder     QueryEmbedder
	logger       *zap.Logger
}

// New builds a Workflow. embedder may be nil, in which case the
// document-relevance step runs with no RAG context (§4.13's tolerated
// failure case).
func New(
	store *Store,
	documents *ingest.DocumentStore,
	vectorStore vectorstore.Store,
	orch *orchestrator.Orchestrator,
	relevance *RelevanceStep,
	prognosis *PrognosisStep,
	draft *DraftStep,
	embedder QueryEmbedder,
	logger *zap.Logger,
) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		store:        store,
		documents:    documents,
		vectorStore:  vectorStore,
		orchestrator: orch,
		relevance:    relevance,
		prognosis:    prognosis,
		draft:        draft,
		embedder:     embedder,
		logger:       logger,
	}
}

// Start admits a new petition for an upload that may still be ingesting.
func (w *Workflow) Start(petitionID, uploadID string) (*Petition, error) {
	return w.store.Create(petitionID, uploadID)
}

// BindDocument records the petition document's id once its ingestion
// completes, called by the upload pipeline's completion path.
func (w *Workflow) BindDocument(petitionID, documentID string) (*Petition, error) {
	return w.store.BindDocument(petitionID, documentID)
}

// Status returns a snapshot of the petition's current state.
func (w *Workflow) Status(petitionID string) (*Petition, error) {
	return w.store.Get(petitionID)
}

// AnalyzeDocuments runs the document-relevance step against the petition's
// own text and records the suggestions, advancing
// AWAITING_DOCUMENTS -> DOCUMENTS_BEING_ANALYZED. Calling it again on a
// petition that has already left AWAITING_DOCUMENTS is a no-op that returns
// the cached suggestions (§4.13 "idempotent re-invocation").
func (w *Workflow) AnalyzeDocuments(ctx context.Context, petitionID string) (*Petition, error) {
	p, err := w.store.Get(petitionID)
	if err != nil {
		return nil, err
	}
	if p.State != StateAwaitingDocuments {
		return p, nil
	}
	if p.DocumentID == "" {
		return nil, apperr.TooEarly("petition %s document is still being ingested", petitionID)
	}

	text, err := w.petitionText(ctx, p.DocumentID)
	if err != nil {
		return nil, err
	}

	docs, err := w.relevance.Run(ctx, text, w.ragContext(ctx, text))
	if err != nil {
		if _, failErr := w.store.Fail(petitionID, err.Error()); failErr != nil {
			w.logger.Warn("petition.fail_record_failed", zap.String("petition_id", petitionID), zap.Error(failErr))
		}
		return nil, err
	}

	return w.store.RecordSuggestedDocuments(petitionID, docs)
}

// AddDocument associates a submitted document with the petition.
func (w *Workflow) AddDocument(petitionID, documentID string) (*Petition, error) {
	return w.store.AddDocument(petitionID, documentID)
}

// Analyze runs the full analysis: the Orchestrator over the petition's
// consolidated documents, then the prognosis step, then the draft step,
// advancing READY_FOR_ANALYSIS -> ANALYSIS_IN_PROGRESS -> COMPLETED.
func (w *Workflow) Analyze(ctx context.Context, petitionID string, experts, attorneys []string) (*Petition, error) {
	ctx, span := tracer.Start(ctx, "petition.analyze")
	defer span.End()

	p, err := w.store.BeginAnalysis(petitionID, experts, attorneys)
	if err != nil {
		return nil, err
	}

	text, err := w.petitionText(ctx, p.DocumentID)
	if err != nil {
		w.failAndReturn(petitionID, err)
		return nil, err
	}

	docIDs := append([]string{p.DocumentID}, p.SubmittedDocumentIDs...)
	result, err := w.orchestrator.RunSync(ctx, orchestrator.Request{
		Prompt:            text,
		ExpertsSelected:   experts,
		AttorneysSelected: attorneys,
		DocumentIDs:       docIDs,
	})
	if err != nil {
		w.failAndReturn(petitionID, err)
		return nil, err
	}

	agentOpinions := append(append([]analysisjobs.AgentOpinionView{}, result.ExpertOpinions...), result.AttorneyOpinions...)
	prognosis, err := w.prognosis.Run(ctx, result.CompiledAnswer, agentOpinions, text)
	if err != nil {
		w.failAndReturn(petitionID, err)
		return nil, err
	}

	draftText, err := w.draft.Run(ctx, result.CompiledAnswer, prognosis)
	if err != nil {
		w.failAndReturn(petitionID, err)
		return nil, err
	}

	return w.store.CompleteAnalysis(petitionID, &result, prognosis, draftText)
}

// ragContext embeds queryText and searches the vector store for up to
// ragContextChunks related chunks, for the document-relevance prompt's RAG
// section. Per §4.13 a RAG failure here is tolerated: any error (no
// embedder configured, embedding failure, search failure) degrades to nil
// rather than failing AnalyzeDocuments.
func (w *Workflow) ragContext(ctx context.Context, queryText string) []string {
	if w.embedder == nil || w.vectorStore == nil || queryText == "" {
		return nil
	}

	vecs, err := w.embedder.Embed(ctx, []string{queryText})
	if err != nil || len(vecs) != 1 {
		w.logger.Warn("petition.rag_context_embed_failed", zap.Error(err))
		return nil
	}
	queryEmbedding := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		queryEmbedding[i] = float32(v)
	}

	results, err := w.vectorStore.Search(ctx, queryEmbedding, ragContextChunks, nil)
	if err != nil {
		w.logger.Warn("petition.rag_context_search_failed", zap.Error(err))
		return nil
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

func (w *Workflow) failAndReturn(petitionID string, cause error) {
	if _, err := w.store.Fail(petitionID, cause.Error()); err != nil {
		w.logger.Warn("petition.fail_record_failed", zap.String("petition_id", petitionID), zap.Error(err))
	}
}

// petitionText assembles the petition document's name and its own chunks
// in index order, bounded to maxPetitionTextChars.
func (w *Workflow) petitionText(ctx context.Context, documentID string) (string, error) {
	doc, err := w.documents.Get(documentID)
	if err != nil {
		return "", err
	}

	chunks, err := w.vectorStore.GetByDocument(ctx, documentID)
	if err != nil {
		return "", apperr.Upstream("failed to load petition document text: %v", err)
	}

	var sb strings.Builder
	sb.WriteString(doc.Name)
	sb.WriteString("\n\n")
	for _, c := range chunks {
		sb.WriteString(c.Text)
		sb.WriteString("\n")
		if sb.Len() >= maxPetitionTextChars {
			break
		}
	}

	text := sb.String()
	if len(text) > maxPetitionTextChars {
		text = text[:maxPetitionTextChars]
	}
	return text, nil
}
