package petition

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/llmclient"
)

const (
	minSuggestedDocuments = 3
	maxSuggestedDocuments = 15
)

const relevancePromptTemplate = `You are a Brazilian legal-intake assistant. Given the petition text below,
list the documents the client should gather before the case can be analyzed.

Petition:
%s

Related case context:
%s

Respond with ONLY a JSON object of this exact shape, nothing else:
{"documents_suggested": [{"type": "string", "justification": "string", "priority": "essential|important|desirable"}]}`

type relevanceResponse struct {
	DocumentsSuggested []rawSuggestedDocument `json:"documents_suggested"`
}

type rawSuggestedDocument struct {
	Type          string `json:"type"`
	Justification string `json:"justification"`
	Priority      string `json:"priority"`
}

// RelevanceStep is the document-relevance LLM step: it asks the model which
// supporting documents a petition needs, validating and defaulting the
// response shape the way agent.parseCitedLegislation validates its own
// fenced section.
type RelevanceStep struct {
	gateway *llmclient.Gateway
	logger  *zap.Logger
}

// NewRelevanceStep builds a RelevanceStep.
func NewRelevanceStep(gateway *llmclient.Gateway, logger *zap.Logger) *RelevanceStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelevanceStep{gateway: gateway, logger: logger}
}

// Run calls the model and returns the validated suggestion list, capped at
// 15 items; a list shorter than 3 is logged as a warning and still
// returned. ragContext is up to 5 related-case chunks spliced into the prompt
// alongside the petition text (§4.13); callers that couldn't retrieve any
// (RAG failures are tolerated, not propagated) pass nil. Unknown priority
// values default to "important" with a logged warning; if zero valid items
// survive validation, Run returns a parse failure error rather than an
// empty slice.
func (r *RelevanceStep) Run(ctx context.Context, petitionText string, ragContext []string) ([]SuggestedDocument, error) {
	result, err := r.gateway.Call(ctx, llmclient.CompletionRequest{
		Prompt:      sprintfRelevance(petitionText, ragContext),
		Model:       "gpt-4",
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}

	var parsed relevanceResponse
	raw := extractJSONObject(result.Text)
	if err := sonic.UnmarshalString(raw, &parsed); err != nil {
		return nil, apperr.ParseFailure("document relevance response was not valid JSON: %v", err)
	}

	docs := make([]SuggestedDocument, 0, len(parsed.DocumentsSuggested))
	for _, d := range parsed.DocumentsSuggested {
		if strings.TrimSpace(d.Type) == "" {
			continue
		}
		priority := Priority(strings.ToLower(strings.TrimSpace(d.Priority)))
		switch priority {
		case PriorityEssential, PriorityImportant, PriorityDesirable:
		default:
			r.logger.Warn("petition.relevance_unknown_priority", zap.String("raw_priority", d.Priority), zap.String("type", d.Type))
			priority = PriorityImportant
		}
		docs = append(docs, SuggestedDocument{
			Type:          d.Type,
			Justification: d.Justification,
			Priority:      priority,
		})
	}

	if len(docs) == 0 {
		return nil, apperr.ParseFailure("document relevance response contained no valid suggestions")
	}
	if len(docs) > maxSuggestedDocuments {
		docs = docs[:maxSuggestedDocuments]
	}
	if len(docs) < minSuggestedDocuments {
		r.logger.Warn("petition.relevance_below_minimum", zap.Int("count", len(docs)), zap.Int("minimum", minSuggestedDocuments))
	}
	return docs, nil
}

func sprintfRelevance(petitionText string, ragContext []string) string {
	prompt := strings.Replace(relevancePromptTemplate, "%s", petitionText, 1)
	return strings.Replace(prompt, "%s", formatRAGContext(ragContext), 1)
}

// formatRAGContext renders up to 5 retrieved chunks for the relevance
// prompt; an empty slice (RAG unavailable or nothing retrieved) renders as
// an explicit "none" rather than a blank section.
func formatRAGContext(chunks []string) string {
	if len(chunks) == 0 {
		return "(no related case context was retrieved)"
	}
	var b strings.Builder
	for i, c := range chunks {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "[context %d] %s\n", i+1, c)
	}
	return b.String()
}

// extractJSONObject trims any leading/trailing prose a model may add around
// the JSON object, keeping only the outermost braces.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
