// Package agent implements the Agent Abstraction (C8) and the concrete
// Specialist Agents (C9). No teacher analog exists for legal specialist
// prompts, so the shape is built fresh in the teacher's idiom (plain
// structs and methods, no framework), grounded stylistically on the
// request/response struct shape of go-enhanced-rag-service's
// RAGRequest/RAGResponse.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/llmclient"
)

// uncertaintyPhrases is the small fixed set checked by the self-confidence
// heuristic (§4.8).
var uncertaintyPhrases = []string{
	"i am not sure", "i'm not sure", "it is unclear", "it's unclear",
	"cannot determine", "can not determine", "insufficient information",
	"não é possível", "não tenho certeza",
}

// Opinion is the C8 output contract (§3 AgentOpinion).
type Opinion struct {
	AgentID          string
	AgentName        string
	AgentType        string
	Specialty        string
	Text             string
	SelfConfidence   float64
	ReferencedDocs   []string
	CitedLegislation []string
	Timestamp        time.Time
}

// Identity is the fixed (name, description, type tag) triple every
// specialist declares.
type Identity struct {
	ID          string
	Name        string
	Description string
	TypeTag     string // "expert" or "attorney"
	Specialty   string
	Model       string
	Temperature float64
}

// PromptBuilder is the one capability every concrete specialist supplies.
type PromptBuilder interface {
	Identity() Identity
	BuildPrompt(contextDocs []string, question string, extras map[string]string) string
}

// Agent is the template-method base: validate -> build prompt -> call the
// LLM Gateway -> wrap the result with a heuristic self-confidence. Agents
// never call the vector store themselves (§4.8).
type Agent struct {
	builder PromptBuilder
	gateway *llmclient.Gateway
}

// New wraps a PromptBuilder with the shared process() template method.
func New(builder PromptBuilder, gateway *llmclient.Gateway) *Agent {
	return &Agent{builder: builder, gateway: gateway}
}

// Identity exposes the wrapped specialist's identity triple.
func (a *Agent) Identity() Identity {
	return a.builder.Identity()
}

// Process validates inputs, builds the prompt, calls the LLM Gateway, and
// returns a fully-formed AgentOpinion.
func (a *Agent) Process(ctx context.Context, contextDocs []string, question string, extras map[string]string) (Opinion, error) {
	if strings.TrimSpace(question) == "" {
		return Opinion{}, apperr.Validation("question must not be empty")
	}

	id := a.builder.Identity()
	prompt := a.builder.BuildPrompt(contextDocs, question, extras)

	result, err := a.gateway.Call(ctx, llmclient.CompletionRequest{
		System:      fmt.Sprintf("You are %s. %s", id.Name, id.Description),
		Prompt:      prompt,
		Model:       id.Model,
		Temperature: id.Temperature,
	})
	if err != nil {
		return Opinion{}, err
	}

	op := Opinion{
		AgentID:        id.ID,
		AgentName:      id.Name,
		AgentType:      id.TypeTag,
		Specialty:      id.Specialty,
		Text:           result.Text,
		SelfConfidence: selfConfidence(result.Text, len(contextDocs)),
		Timestamp:      time.Now().UTC(),
	}
	if id.TypeTag == "attorney" {
		op.CitedLegislation = parseCitedLegislation(result.Text)
	}
	return op, nil
}

// selfConfidence implements the deterministic heuristic from §4.8: start at
// 0.8, subtract 0.3 if the response is short, 0.2 if it hedges, 0.1 if
// fewer than two context documents were supplied, clamp to [0,1].
func selfConfidence(text string, contextDocCount int) float64 {
	conf := 0.8
	if len(text) < 200 {
		conf -= 0.3
	}
	if containsUncertainty(text) {
		conf -= 0.2
	}
	if contextDocCount < 2 {
		conf -= 0.1
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func containsUncertainty(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// citedLegislationMarker delimits the fenced list an attorney response is
// instructed to emit, e.g.:
//
//	--- CITED LEGISLATION ---
//	Law 8.213/1991, art. 59
//	CLT, art. 482
//	--- END CITED LEGISLATION ---
const (
	citedLegislationStart = "--- CITED LEGISLATION ---"
	citedLegislationEnd   = "--- END CITED LEGISLATION ---"
)

// parseCitedLegislation extracts the fenced legislation list from an
// attorney's response text. A response without the fenced section yields
// an empty (not nil-vs-empty-ambiguous) slice.
func parseCitedLegislation(text string) []string {
	startIdx := strings.Index(text, citedLegislationStart)
	if startIdx == -1 {
		return []string{}
	}
	rest := text[startIdx+len(citedLegislationStart):]
	endIdx := strings.Index(rest, citedLegislationEnd)
	if endIdx == -1 {
		return []string{}
	}
	body := rest[:endIdx]

	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
