// Package petition implements the Petition Workflow (C13): a per-petition
// state machine layered on top of the Ingestion Pipeline and Orchestrator,
// plus two additional LLM steps (document relevance, outcome prognosis)
// and a draft-generation step. New to this spec; built fresh in the
// teacher's idiom, grounded stylistically on the same request/response
// struct shapes used throughout the agent and coordinator packages.
package petition

import (
	"time"

	"legal-analysis-platform/internal/analysisjobs"
)

// State is the Petition state enum from §3, with the declared transition
// order enforced by Store.
type State string

const (
	StateAwaitingDocuments      State = "AWAITING_DOCUMENTS"
	StateDocumentsBeingAnalyzed State = "DOCUMENTS_BEING_ANALYZED"
	StateReadyForAnalysis       State = "READY_FOR_ANALYSIS"
	StateAnalysisInProgress     State = "ANALYSIS_IN_PROGRESS"
	StateCompleted              State = "COMPLETED"
	StateError                  State = "ERROR"
)

// declaredOrder is the forward sequence every non-error transition must
// follow; regression is only ever to StateError.
var declaredOrder = map[State]State{
	StateAwaitingDocuments:      StateDocumentsBeingAnalyzed,
	StateDocumentsBeingAnalyzed: StateReadyForAnalysis,
	StateReadyForAnalysis:       StateAnalysisInProgress,
	StateAnalysisInProgress:     StateCompleted,
}

// Priority is the suggested-document priority enum.
type Priority string

const (
	PriorityEssential Priority = "essential"
	PriorityImportant Priority = "important"
	PriorityDesirable Priority = "desirable"
)

// SuggestedDocument is one entry of the document-relevance step's output.
type SuggestedDocument struct {
	Type          string   `json:"type"`
	Justification string   `json:"justification"`
	Priority      Priority `json:"priority"`
}

// Scenario is one of the four prognosis outcome buckets.
type Scenario string

const (
	ScenarioVictoryTotal   Scenario = "VICTORY_TOTAL"
	ScenarioVictoryPartial Scenario = "VICTORY_PARTIAL"
	ScenarioSettlement     Scenario = "SETTLEMENT"
	ScenarioDefeat         Scenario = "DEFEAT"
)

// AllScenarios enumerates the fixed four-scenario distribution from §3.
var AllScenarios = []Scenario{ScenarioVictoryTotal, ScenarioVictoryPartial, ScenarioSettlement, ScenarioDefeat}

// Prognosis is the §3 discrete outcome distribution.
type Prognosis struct {
	Probabilities           map[Scenario]float64
	ValueRangeMin           *float64
	ValueRangeMax           *float64
	EstimatedDurationMonths *float64
	Recommendation          string
	CriticalFactors         []string
}

// Petition is one petition's full state.
type Petition struct {
	ID                   string
	UploadID             string
	DocumentID           string
	State                State
	SuggestedDocuments   []SuggestedDocument
	SubmittedDocumentIDs []string
	ExpertsSelected      []string
	AttorneysSelected    []string
	AnalysisResult       *analysisjobs.Result
	Prognosis            *Prognosis
	Draft                string
	ErrorMessage         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// essentialCount returns how many suggested documents are essential-priority.
func (p *Petition) essentialCount() int {
	n := 0
	for _, d := range p.SuggestedDocuments {
		if d.Priority == PriorityEssential {
			n++
		}
	}
	return n
}

// hasAllEssentialDocuments reports whether enough documents have been
// submitted to satisfy every essential suggestion. Type-level matching of
// submissions to suggestions is left to the caller/UI; the core contract is
// the documented count threshold.
func (p *Petition) hasAllEssentialDocuments() bool {
	return len(p.SubmittedDocumentIDs) >= p.essentialCount()
}
