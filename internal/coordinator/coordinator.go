// Package coordinator implements the Coordinator Agent (C10): the sole
// agent that talks to the vector store and fans out to specialists. Parallel
// delegation uses golang.org/x/sync/errgroup for goroutine bookkeeping only
// — NOT its cancel-on-first-error semantics, since a failed specialist must
// never cancel its siblings (§4.10 "per-task error isolation"). Each
// delegate result is captured into a map instead of being propagated
// through the group's returned error.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"legal-analysis-platform/internal/agent"
	"legal-analysis-platform/internal/llmclient"
	"legal-analysis-platform/internal/vectorstore"
)

// DelegateResult is one specialist's outcome: either a successful Opinion
// or an isolated failure that never cancels its siblings.
type DelegateResult struct {
	Opinion agent.Opinion
	Failed  bool
	Error   string
}

// CompiledOpinion is the final, single-LLM-call compiled legal opinion.
type CompiledOpinion struct {
	Text       string
	Confidence float64
}

// Coordinator wires the vector store and agent registry behind the C10
// contract.
type Coordinator struct {
	store    vectorstore.Store
	registry Registry
	gateway  *llmclient.Gateway
}

// Registry is the subset of agent.Registry the coordinator depends on,
// expressed as an interface so tests can substitute a fake without pulling
// in the full registry.
type Registry interface {
	Get(id string) (*agent.Agent, bool)
}

// New builds a Coordinator.
func New(store vectorstore.Store, registry Registry, gateway *llmclient.Gateway) *Coordinator {
	return &Coordinator{store: store, registry: registry, gateway: gateway}
}

// RAGQuery performs a similarity search for context, degrading gracefully
// to an empty slice if the vector store errors or is unavailable — the
// error is never propagated (§4.10). queryEmbedding must already be the
// embedding of the caller's query text; the Coordinator never embeds text
// itself (that is the Orchestrator's job, via chunkembed.Embedder).
func (c *Coordinator) RAGQuery(ctx context.Context, queryEmbedding []float32, k int, filter *vectorstore.Filter) []string {
	if c.store == nil {
		return []string{}
	}
	results, err := c.store.Search(ctx, queryEmbedding, k, filter)
	if err != nil {
		return []string{}
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

// delegate runs each agentID's Process concurrently with per-task error
// isolation. errgroup is used purely for goroutine lifecycle bookkeeping;
// its Wait() error is discarded because no single failure may cancel the
// others.
func (c *Coordinator) delegate(ctx context.Context, question string, contextDocs []string, agentIDs []string, extras map[string]string) map[string]DelegateResult {
	results := make(map[string]DelegateResult, len(agentIDs))
	var mu sync.Mutex

	// Plain errgroup.Group, not WithContext: WithContext would cancel every
	// sibling's ctx on the first returned error, which violates the
	// per-task isolation rule. Every Go() func below always returns nil so
	// Wait() never observes a failure to propagate anyway.
	var g errgroup.Group

	for _, id := range agentIDs {
		id := id
		g.Go(func() error {
			a, ok := c.registry.Get(id)
			if !ok {
				mu.Lock()
				results[id] = DelegateResult{Failed: true, Error: fmt.Sprintf("unknown agent id %q", id)}
				mu.Unlock()
				return nil
			}

			op, err := a.Process(ctx, contextDocs, question, extras)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[id] = DelegateResult{Failed: true, Error: err.Error()}
				return nil
			}
			results[id] = DelegateResult{Opinion: op}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DelegateToExperts runs the selected experts concurrently.
func (c *Coordinator) DelegateToExperts(ctx context.Context, question string, contextDocs []string, expertIDs []string, extras map[string]string) map[string]DelegateResult {
	return c.delegate(ctx, question, contextDocs, expertIDs, extras)
}

// DelegateToAttorneys runs the selected attorneys concurrently.
func (c *Coordinator) DelegateToAttorneys(ctx context.Context, question string, contextDocs []string, attorneyIDs []string, extras map[string]string) map[string]DelegateResult {
	return c.delegate(ctx, question, contextDocs, attorneyIDs, extras)
}

// Compile makes the single LLM call whose prompt contains both opinion sets
// and the RAG context, producing the final compiled legal opinion.
// expertIDs/attorneyIDs is the client-supplied selection order (§5): opinions
// render into the prompt in that order, not map iteration order.
func (c *Coordinator) Compile(ctx context.Context, experts, attorneys map[string]DelegateResult, expertIDs, attorneyIDs []string, contextDocs []string, originalQuestion string) (CompiledOpinion, error) {
	prompt := buildCompilePrompt(originalQuestion, experts, attorneys, expertIDs, attorneyIDs, contextDocs)

	result, err := c.gateway.Call(ctx, llmclient.CompletionRequest{
		Prompt:      prompt,
		Model:       "gpt-4",
		Temperature: 0.3,
	})
	if err != nil {
		return CompiledOpinion{}, err
	}

	confidence := AggregateConfidence(experts, attorneys, len(contextDocs) == 0)
	return CompiledOpinion{Text: result.Text, Confidence: confidence}, nil
}

// AggregateConfidence implements §4.10's formula: mean self-confidence of
// successful opinions minus 0.10 per failed agent, minus 0.15 if the RAG
// context was empty, clamped to [0,1].
func AggregateConfidence(experts, attorneys map[string]DelegateResult, emptyContext bool) float64 {
	var sum float64
	var successCount, failedCount int

	for _, results := range []map[string]DelegateResult{experts, attorneys} {
		for _, r := range results {
			if r.Failed {
				failedCount++
				continue
			}
			sum += r.Opinion.SelfConfidence
			successCount++
		}
	}

	var mean float64
	if successCount > 0 {
		mean = sum / float64(successCount)
	}

	conf := mean - 0.10*float64(failedCount)
	if emptyContext {
		conf -= 0.15
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func buildCompilePrompt(question string, experts, attorneys map[string]DelegateResult, expertIDs, attorneyIDs []string, contextDocs []string) string {
	s := "Original question: " + question + "\n\nContext documents:\n"
	for _, d := range contextDocs {
		s += "- " + d + "\n"
	}
	s += "\nTechnical expert opinions:\n" + renderOpinions(experts, expertIDs)
	s += "\nSpecialist attorney opinions:\n" + renderOpinions(attorneys, attorneyIDs)
	s += "\nCompile these into a single, coherent legal opinion that addresses the original question."
	return s
}

// renderOpinions walks order (the client-supplied selection order) instead
// of ranging the map directly, so the rendered prompt is deterministic.
func renderOpinions(results map[string]DelegateResult, order []string) string {
	s := ""
	for _, id := range order {
		r, ok := results[id]
		if !ok {
			continue
		}
		if r.Failed {
			s += fmt.Sprintf("[%s] FAILED: %s\n", id, r.Error)
			continue
		}
		s += fmt.Sprintf("[%s] (confidence %.2f): %s\n", id, r.Opinion.SelfConfidence, r.Opinion.Text)
	}
	return s
}
