// Package analysisjobs implements the Analysis Job Manager (C11): the same
// mutex-guarded table shape as uploadjobs, over AnalysisJob, with the
// additional rule that a COMPLETED result payload is immutable.
package analysisjobs

import (
	"sync"
	"time"

	"legal-analysis-platform/internal/apperr"
)

// Status is the AnalysisJob state enum from §3.
type Status string

const (
	StatusInitiated  Status = "INITIATED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// AgentOpinionView is the per-agent opinion shape stored in a result.
type AgentOpinionView struct {
	AgentID           string
	AgentName         string
	AgentType         string
	Specialty         string
	OpinionText       string
	SelfConfidence    float64
	ReferencedDocs    []string
	CitedLegislation  []string
	Failed            bool
	ErrorMessage      string
}

// Result is the success payload recorded at COMPLETED.
type Result struct {
	CompiledAnswer     string
	ExpertOpinions     []AgentOpinionView
	AttorneyOpinions   []AgentOpinionView
	DocumentsConsulted []string
	ExpertsUsed        []string
	AttorneysUsed      []string
	Confidence         float64
	StartedAt          time.Time
	EndedAt            time.Time
}

// DurationSeconds is a convenience accessor for the HTTP surface.
func (r Result) DurationSeconds() float64 {
	return r.EndedAt.Sub(r.StartedAt).Seconds()
}

// Job is one AnalysisJob's full state.
type Job struct {
	ID            string
	Prompt        string
	ExpertsSel    []string
	AttorneysSel  []string
	DocumentIDs   []string
	Status        Status
	CurrentStage  string
	Progress      int
	Result        *Result
	ErrorMessage  string
	ErrorTag      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store is the mutex-guarded in-process analysis job table.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

// New builds an empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*Job), now: time.Now}
}

// Create admits a new job at INITIATED. Duplicate ids are rejected.
func (s *Store) Create(id, prompt string, experts, attorneys, documentIDs []string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return nil, apperr.Validation("analysis job %s already exists", id)
	}

	now := s.now()
	job := &Job{
		ID:           id,
		Prompt:       prompt,
		ExpertsSel:   experts,
		AttorneysSel: attorneys,
		DocumentIDs:  documentIDs,
		Status:       StatusInitiated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.jobs[id] = job
	return job.copy(), nil
}

// UpdateStage records a progress update; terminal jobs are never mutated,
// and progress never regresses.
func (s *Store) UpdateStage(id, label string, percent int) error {
	if percent < 0 || percent > 100 {
		return apperr.Validation("progress percent %d out of range", percent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("analysis job %s not found", id)
	}
	if job.Status.terminal() {
		return nil
	}

	if percent > 0 && job.Status == StatusInitiated {
		job.Status = StatusProcessing
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	job.CurrentStage = label
	job.UpdatedAt = s.now()
	return nil
}

// RecordResult marks the job COMPLETED. Once set, the result is immutable:
// a second call on an already-completed job is a silent no-op rather than
// an overwrite.
func (s *Store) RecordResult(id string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("analysis job %s not found", id)
	}
	if job.Status == StatusCompleted {
		return nil
	}
	if job.Status == StatusError {
		return nil
	}

	job.Status = StatusCompleted
	job.Progress = 100
	job.Result = &result
	job.UpdatedAt = s.now()
	return nil
}

// RecordError marks the job ERROR with a human-readable message and an
// optional machine-readable tag.
func (s *Store) RecordError(id, message, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("analysis job %s not found", id)
	}
	if job.Status.terminal() {
		return nil
	}

	job.Status = StatusError
	job.ErrorMessage = message
	job.ErrorTag = tag
	job.UpdatedAt = s.now()
	return nil
}

// Get returns a snapshot copy of a job's current state.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperr.NotFound("analysis job %s not found", id)
	}
	return job.copy(), nil
}

// List returns a snapshot copy of every job.
func (s *Store) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.copy())
	}
	return out
}

// Delete removes a job from the table.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (j *Job) copy() *Job {
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}
