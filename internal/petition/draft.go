package petition

import (
	"context"
	"strings"

	"legal-analysis-platform/internal/llmclient"
)

const draftPromptTemplate = `You are a Brazilian legal drafter. Using the compiled opinion and outcome
prognosis below, write a continuation-ready draft petition in Markdown.
Wherever a detail depends on facts only the client or attorney can supply
(full name, CPF, dates, monetary amounts, addresses), insert a placeholder
of the exact form [PERSONALIZE: description of what belongs here] instead
of inventing a value.

Compiled opinion:
%s

Outcome prognosis:
%s`

// DraftStep produces a Markdown continuation document with [PERSONALIZE: ...]
// placeholders standing in for facts the model cannot know.
type DraftStep struct {
	gateway *llmclient.Gateway
}

// NewDraftStep builds a DraftStep.
func NewDraftStep(gateway *llmclient.Gateway) *DraftStep {
	return &DraftStep{gateway: gateway}
}

// Run calls the model to produce the draft text.
func (d *DraftStep) Run(ctx context.Context, compiledOpinion string, prognosis *Prognosis) (string, error) {
	prompt := draftPromptTemplate
	prompt = strings.Replace(prompt, "%s", compiledOpinion, 1)
	prompt = strings.Replace(prompt, "%s", prognosis.String(), 1)

	result, err := d.gateway.Call(ctx, llmclient.CompletionRequest{
		Prompt:      prompt,
		Model:       "gpt-4",
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
