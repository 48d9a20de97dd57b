package petition

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bytedance/sonic"

	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/llmclient"
)

const probabilitySumTolerance = 1.0

const prognosisPromptTemplate = `You are a Brazilian litigation outcome analyst. Given the compiled legal
opinion below, estimate the probability of each of the four outcome
scenarios and a short recommendation.

Compiled opinion:
%s

Per-agent opinions:
%s

Case facts:
%s

Respond with ONLY a JSON object of this exact shape, nothing else:
{
  "probabilities": {"VICTORY_TOTAL": 0, "VICTORY_PARTIAL": 0, "SETTLEMENT": 0, "DEFEAT": 0},
  "value_range_min": null,
  "value_range_max": null,
  "estimated_duration_months": null,
  "recommendation": "string",
  "critical_factors": ["string"]
}
The four probabilities must be non-negative numbers summing to 100.`

type rawPrognosis struct {
	Probabilities           map[string]float64 `json:"probabilities"`
	ValueRangeMin           *float64           `json:"value_range_min"`
	ValueRangeMax           *float64           `json:"value_range_max"`
	EstimatedDurationMonths *float64           `json:"estimated_duration_months"`
	Recommendation          string             `json:"recommendation"`
	CriticalFactors         []string           `json:"critical_factors"`
}

// PrognosisStep produces a discrete four-scenario outcome distribution from
// a compiled opinion.
type PrognosisStep struct {
	gateway *llmclient.Gateway
}

// NewPrognosisStep builds a PrognosisStep.
func NewPrognosisStep(gateway *llmclient.Gateway) *PrognosisStep {
	return &PrognosisStep{gateway: gateway}
}

// Run calls the model and validates the resulting distribution sums to
// 100 within tolerance and every value is non-negative. Per §4.13 the
// prompt carries the final compiled opinion, the per-agent opinions, and
// the case facts, not the compiled opinion alone.
func (p *PrognosisStep) Run(ctx context.Context, compiledOpinion string, agentOpinions []analysisjobs.AgentOpinionView, caseFacts string) (*Prognosis, error) {
	prompt := strings.Replace(prognosisPromptTemplate, "%s", compiledOpinion, 1)
	prompt = strings.Replace(prompt, "%s", formatAgentOpinions(agentOpinions), 1)
	prompt = strings.Replace(prompt, "%s", caseFacts, 1)

	result, err := p.gateway.Call(ctx, llmclient.CompletionRequest{
		Prompt:      prompt,
		Model:       "gpt-4",
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	var raw rawPrognosis
	if err := sonic.UnmarshalString(extractJSONObject(result.Text), &raw); err != nil {
		return nil, apperr.ParseFailure("prognosis response was not valid JSON: %v", err)
	}

	probs := make(map[Scenario]float64, len(AllScenarios))
	var sum float64
	for _, scenario := range AllScenarios {
		v, ok := raw.Probabilities[string(scenario)]
		if !ok {
			return nil, apperr.ParseFailure("prognosis response missing scenario %q", scenario)
		}
		if v < 0 {
			return nil, apperr.ParseFailure("prognosis scenario %q has negative probability %v", scenario, v)
		}
		probs[scenario] = v
		sum += v
	}
	if math.Abs(sum-100.0) > probabilitySumTolerance {
		return nil, apperr.ParseFailure("prognosis probabilities sum to %.2f, expected 100 (+/- %.0f)", sum, probabilitySumTolerance)
	}

	return &Prognosis{
		Probabilities:           probs,
		ValueRangeMin:           raw.ValueRangeMin,
		ValueRangeMax:           raw.ValueRangeMax,
		EstimatedDurationMonths: raw.EstimatedDurationMonths,
		Recommendation:          raw.Recommendation,
		CriticalFactors:         raw.CriticalFactors,
	}, nil
}

// formatAgentOpinions renders each per-agent opinion the orchestrator
// produced, in the order it returned them, for the prognosis prompt.
func formatAgentOpinions(opinions []analysisjobs.AgentOpinionView) string {
	if len(opinions) == 0 {
		return "(no per-agent opinions were available)"
	}
	var b strings.Builder
	for _, o := range opinions {
		if o.Failed {
			fmt.Fprintf(&b, "[%s] FAILED: %s\n", o.AgentID, o.ErrorMessage)
			continue
		}
		fmt.Fprintf(&b, "[%s] (confidence %.2f): %s\n", o.AgentID, o.SelfConfidence, o.OpinionText)
	}
	return b.String()
}

// String renders a one-line human summary, used by the draft step.
func (p *Prognosis) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf(
		"victory (total): %.0f%%, victory (partial): %.0f%%, settlement: %.0f%%, defeat: %.0f%%",
		p.Probabilities[ScenarioVictoryTotal],
		p.Probabilities[ScenarioVictoryPartial],
		p.Probabilities[ScenarioSettlement],
		p.Probabilities[ScenarioDefeat],
	)
}
