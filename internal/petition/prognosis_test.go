package petition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/llmclient"
)

type fakePrognosisCompleter struct {
	text string
	seen llmclient.CompletionRequest
}

func (c *fakePrognosisCompleter) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	c.seen = req
	return llmclient.CompletionResult{Text: c.text}, nil
}

func TestPrognosisRunParsesValidDistribution(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 40, "VICTORY_PARTIAL": 30, "SETTLEMENT": 20, "DEFEAT": 10},
		"value_range_min": 5000, "value_range_max": 20000, "estimated_duration_months": 18,
		"recommendation": "proceed", "critical_factors": ["documentation gaps"]}`
	gw := llmclient.New(&fakePrognosisCompleter{text: text}, nil)
	step := NewPrognosisStep(gw)

	p, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.NoError(t, err)
	assert.Equal(t, 40.0, p.Probabilities[ScenarioVictoryTotal])
	require.NotNil(t, p.ValueRangeMin)
	assert.Equal(t, 5000.0, *p.ValueRangeMin)
	assert.Equal(t, "proceed", p.Recommendation)
}

func TestPrognosisRunAcceptsSumWithinTolerance(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 40.5, "VICTORY_PARTIAL": 30, "SETTLEMENT": 20, "DEFEAT": 10}}`
	gw := llmclient.New(&fakePrognosisCompleter{text: text}, nil)
	step := NewPrognosisStep(gw)

	_, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.NoError(t, err)
}

func TestPrognosisRunRejectsSumOutsideTolerance(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 40, "VICTORY_PARTIAL": 30, "SETTLEMENT": 20, "DEFEAT": 5}}`
	gw := llmclient.New(&fakePrognosisCompleter{text: text}, nil)
	step := NewPrognosisStep(gw)

	_, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.Error(t, err)
}

func TestPrognosisRunRejectsNegativeProbability(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 110, "VICTORY_PARTIAL": -10, "SETTLEMENT": 0, "DEFEAT": 0}}`
	gw := llmclient.New(&fakePrognosisCompleter{text: text}, nil)
	step := NewPrognosisStep(gw)

	_, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.Error(t, err)
}

func TestPrognosisRunRejectsMissingScenario(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 100}}`
	gw := llmclient.New(&fakePrognosisCompleter{text: text}, nil)
	step := NewPrognosisStep(gw)

	_, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.Error(t, err)
}

func TestPrognosisRunIncludesCompiledOpinionAgentOpinionsAndCaseFacts(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 40, "VICTORY_PARTIAL": 30, "SETTLEMENT": 20, "DEFEAT": 10}}`
	completer := &fakePrognosisCompleter{text: text}
	gw := llmclient.New(completer, nil)
	step := NewPrognosisStep(gw)

	opinions := []analysisjobs.AgentOpinionView{
		{AgentID: "medical_expert", OpinionText: "a clear causation finding", SelfConfidence: 0.7},
		{AgentID: "labor_attorney", Failed: true, ErrorMessage: "gateway timeout"},
	}

	_, err := step.Run(context.Background(), "the compiled legal opinion text", opinions, "the client's case facts")
	require.NoError(t, err)
	assert.Contains(t, completer.seen.Prompt, "the compiled legal opinion text")
	assert.Contains(t, completer.seen.Prompt, "a clear causation finding")
	assert.Contains(t, completer.seen.Prompt, "labor_attorney")
	assert.Contains(t, completer.seen.Prompt, "gateway timeout")
	assert.Contains(t, completer.seen.Prompt, "the client's case facts")
}

func TestPrognosisRunToleratesMissingAgentOpinions(t *testing.T) {
	text := `{"probabilities": {"VICTORY_TOTAL": 40, "VICTORY_PARTIAL": 30, "SETTLEMENT": 20, "DEFEAT": 10}}`
	completer := &fakePrognosisCompleter{text: text}
	gw := llmclient.New(completer, nil)
	step := NewPrognosisStep(gw)

	_, err := step.Run(context.Background(), "compiled opinion", nil, "case facts")
	require.NoError(t, err)
	assert.Contains(t, completer.seen.Prompt, "no per-agent opinions were available")
}

func TestPrognosisStringSummarizes(t *testing.T) {
	p := &Prognosis{Probabilities: map[Scenario]float64{
		ScenarioVictoryTotal:   40,
		ScenarioVictoryPartial: 30,
		ScenarioSettlement:     20,
		ScenarioDefeat:         10,
	}}
	assert.Contains(t, p.String(), "40%")
}
