package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/llmclient"
)

type stubBuilder struct {
	identity Identity
	response string
}

func (s *stubBuilder) Identity() Identity { return s.identity }
func (s *stubBuilder) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return "prompt: " + question
}

type stubCompleter struct {
	text string
}

func (c *stubCompleter) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	return llmclient.CompletionResult{Text: c.text, InputTokens: 10, OutputTokens: 20}, nil
}

func longResponse(suffix string) string {
	base := "This is a sufficiently detailed legal opinion that exceeds the two hundred character threshold used by the self-confidence heuristic so that the length penalty does not apply in this particular test case scenario. "
	return base + suffix
}

func TestProcessBuildsOpinionWithHighConfidence(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: longResponse("Clear conclusion.")}, nil)
	builder := &stubBuilder{identity: Identity{ID: "x", Name: "X", TypeTag: "expert", Model: "gpt-4", Temperature: 0.2}}
	a := New(builder, gw)

	op, err := a.Process(context.Background(), []string{"doc1", "doc2"}, "what happened?", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", op.AgentID)
	assert.InDelta(t, 0.8, op.SelfConfidence, 0.001)
}

func TestProcessPenalizesShortResponse(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: "too short"}, nil)
	builder := &stubBuilder{identity: Identity{ID: "x", TypeTag: "expert", Model: "gpt-4"}}
	a := New(builder, gw)

	op, err := a.Process(context.Background(), []string{"doc1", "doc2"}, "q", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, op.SelfConfidence, 0.001)
}

func TestProcessPenalizesUncertaintyAndFewDocs(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: longResponse("It is unclear what the outcome will be given the facts presented here today.")}, nil)
	builder := &stubBuilder{identity: Identity{ID: "x", TypeTag: "expert", Model: "gpt-4"}}
	a := New(builder, gw)

	op, err := a.Process(context.Background(), []string{"doc1"}, "q", nil)
	require.NoError(t, err)
	// 0.8 - 0.2 (uncertainty) - 0.1 (only one doc) = 0.5
	assert.InDelta(t, 0.5, op.SelfConfidence, 0.001)
}

func TestProcessRejectsEmptyQuestion(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: "x"}, nil)
	builder := &stubBuilder{identity: Identity{ID: "x"}}
	a := New(builder, gw)

	_, err := a.Process(context.Background(), nil, "   ", nil)
	require.Error(t, err)
}

func TestAttorneyParsesCitedLegislation(t *testing.T) {
	response := longResponse("Opinion body here.") + "\n--- CITED LEGISLATION ---\nCLT, art. 482\n- Lei 8.213/1991, art. 59\n--- END CITED LEGISLATION ---"
	gw := llmclient.New(&stubCompleter{text: response}, nil)
	attorney := NewLaborAttorney(0.3)
	a := New(attorney, gw)

	op, err := a.Process(context.Background(), []string{"doc1", "doc2"}, "is the dismissal valid?", nil)
	require.NoError(t, err)
	require.Len(t, op.CitedLegislation, 2)
	assert.Equal(t, "CLT, art. 482", op.CitedLegislation[0])
	assert.Equal(t, "Lei 8.213/1991, art. 59", op.CitedLegislation[1])
}

func TestExpertDoesNotParseCitedLegislation(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: longResponse("No legislation here.")}, nil)
	expert := NewMedicalExpert(0.2)
	a := New(expert, gw)

	op, err := a.Process(context.Background(), []string{"doc1", "doc2"}, "what is the diagnosis?", nil)
	require.NoError(t, err)
	assert.Nil(t, op.CitedLegislation)
}

func TestRegistryListsExpertsAndAttorneysSeparately(t *testing.T) {
	gw := llmclient.New(&stubCompleter{text: "x"}, nil)
	r := NewRegistry(gw, 0.2, 0.3)

	assert.Len(t, r.Experts(), 2)
	assert.Len(t, r.Attorneys(), 4)
	assert.True(t, r.Known("labor_attorney"))
	assert.False(t, r.Known("nonexistent"))

	a, ok := r.Get("medical_expert")
	require.True(t, ok)
	assert.Equal(t, "medical_expert", a.Identity().ID)
}
