package petition

import (
	"sync"
	"time"

	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/apperr"
)

// Store is the mutex-guarded in-process petition table, mirroring the shape
// of uploadjobs.Store/analysisjobs.Store.
type Store struct {
	mu        sync.Mutex
	petitions map[string]*Petition
	now       func() time.Time
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{petitions: make(map[string]*Petition), now: time.Now}
}

// Create admits a new petition in AWAITING_DOCUMENTS for an upload that may
// still be ingesting; DocumentID is populated later via BindDocument once
// the underlying ingestion job completes.
func (s *Store) Create(id, uploadID string) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.petitions[id]; exists {
		return nil, apperr.Validation("petition %s already exists", id)
	}

	now := s.now()
	p := &Petition{
		ID:        id,
		UploadID:  uploadID,
		State:     StateAwaitingDocuments,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.petitions[id] = p
	return p.copy(), nil
}

// BindDocument records the petition document's id once its ingestion
// completes. It does not change state.
func (s *Store) BindDocument(id, documentID string) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.petitions[id]
	if !ok {
		return nil, apperr.NotFound("petition %s not found", id)
	}
	p.DocumentID = documentID
	p.UpdatedAt = s.now()
	return p.copy(), nil
}

// Get returns a snapshot copy of a petition's current state.
func (s *Store) Get(id string) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.petitions[id]
	if !ok {
		return nil, apperr.NotFound("petition %s not found", id)
	}
	return p.copy(), nil
}

// advance transitions a petition to next, enforcing the declared forward
// order; a petition already in ERROR or COMPLETED cannot advance further.
func (s *Store) advance(id string, next State, mutate func(*Petition)) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.petitions[id]
	if !ok {
		return nil, apperr.NotFound("petition %s not found", id)
	}
	if p.State == StateError || p.State == StateCompleted {
		return nil, apperr.Validation("petition %s is in terminal state %s", id, p.State)
	}
	if declaredOrder[p.State] != next {
		return nil, apperr.Validation("petition %s cannot move from %s to %s", id, p.State, next)
	}

	if mutate != nil {
		mutate(p)
	}
	p.State = next
	p.UpdatedAt = s.now()
	return p.copy(), nil
}

// RecordSuggestedDocuments stores the document-relevance step's output and
// advances AWAITING_DOCUMENTS -> DOCUMENTS_BEING_ANALYZED. Re-invocation on
// a petition that has already left AWAITING_DOCUMENTS is a no-op that
// returns the cached suggestions instead of erroring, satisfying the
// idempotent re-invocation rule.
func (s *Store) RecordSuggestedDocuments(id string, docs []SuggestedDocument) (*Petition, error) {
	s.mu.Lock()
	p, ok := s.petitions[id]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.NotFound("petition %s not found", id)
	}
	if p.State != StateAwaitingDocuments {
		cached := p.copy()
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	return s.advance(id, StateDocumentsBeingAnalyzed, func(p *Petition) {
		p.SuggestedDocuments = docs
	})
}

// AddDocument records a submitted document id against the petition and, if
// every essential suggestion is now satisfied, advances
// DOCUMENTS_BEING_ANALYZED -> READY_FOR_ANALYSIS.
func (s *Store) AddDocument(id, documentID string) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.petitions[id]
	if !ok {
		return nil, apperr.NotFound("petition %s not found", id)
	}
	if p.State != StateDocumentsBeingAnalyzed && p.State != StateReadyForAnalysis {
		return nil, apperr.Validation("petition %s is not accepting documents in state %s", id, p.State)
	}

	p.SubmittedDocumentIDs = append(p.SubmittedDocumentIDs, documentID)
	if p.State == StateDocumentsBeingAnalyzed && p.hasAllEssentialDocuments() {
		p.State = StateReadyForAnalysis
	}
	p.UpdatedAt = s.now()
	return p.copy(), nil
}

// BeginAnalysis advances READY_FOR_ANALYSIS -> ANALYSIS_IN_PROGRESS, recording
// which experts/attorneys were selected.
func (s *Store) BeginAnalysis(id string, experts, attorneys []string) (*Petition, error) {
	return s.advance(id, StateAnalysisInProgress, func(p *Petition) {
		p.ExpertsSelected = experts
		p.AttorneysSelected = attorneys
	})
}

// CompleteAnalysis records the final analysis/prognosis/draft and advances
// ANALYSIS_IN_PROGRESS -> COMPLETED.
func (s *Store) CompleteAnalysis(id string, result *analysisjobs.Result, prognosis *Prognosis, draft string) (*Petition, error) {
	return s.advance(id, StateCompleted, func(p *Petition) {
		p.AnalysisResult = result
		p.Prognosis = prognosis
		p.Draft = draft
	})
}

// Fail moves a petition to ERROR from any non-terminal state.
func (s *Store) Fail(id, message string) (*Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.petitions[id]
	if !ok {
		return nil, apperr.NotFound("petition %s not found", id)
	}
	if p.State == StateCompleted {
		return p.copy(), nil
	}

	p.State = StateError
	p.ErrorMessage = message
	p.UpdatedAt = s.now()
	return p.copy(), nil
}

func (p *Petition) copy() *Petition {
	cp := *p
	cp.SuggestedDocuments = append([]SuggestedDocument(nil), p.SuggestedDocuments...)
	cp.SubmittedDocumentIDs = append([]string(nil), p.SubmittedDocumentIDs...)
	cp.ExpertsSelected = append([]string(nil), p.ExpertsSelected...)
	cp.AttorneysSelected = append([]string(nil), p.AttorneysSelected...)
	if p.Prognosis != nil {
		pr := *p.Prognosis
		cp.Prognosis = &pr
	}
	return &cp
}
