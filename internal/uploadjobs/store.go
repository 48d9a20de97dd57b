// Package uploadjobs implements the Upload Job Manager (C7): a process-wide
// table of UploadJob state, generalized from the mutex/map status pattern in
// the teacher's legal-gateway/worker.go (updateJobStatus), but kept
// in-process per §5 rather than round-tripping through Redis on every
// write.
package uploadjobs

import (
	"sync"
	"time"

	"legal-analysis-platform/internal/apperr"
)

// Status is the UploadJob state enum from §3.
type Status string

const (
	StatusInitiated  Status = "INITIATED"
	StatusSaving     Status = "SAVING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Result is the success payload recorded at COMPLETED.
type Result struct {
	DocumentID      string
	PageCount       int
	Method          string
	OCRAvgConfidence *float64
	ChunkCount      int
}

// Job is one UploadJob's full state.
type Job struct {
	ID           string
	FileName     string
	SizeBytes    int64
	Status       Status
	CurrentStage string
	Progress     int
	Result       *Result
	ErrorMessage string
	ErrorTag     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store is the mutex-guarded in-process upload job table.
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
func (s *Store) Create(id, fileName string, sizeBytes int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return nil, apperr.Validation("upload job %s already exists", id)
	}

	now := s.now()
	job := &Job{
		ID:        id,
		FileName:  fileName,
		SizeBytes: sizeBytes,
		Status:    StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	return job.copy(), nil
}

// UpdateStage records a progress update. A terminal job is never mutated
// further. Setting a non-zero percent while still INITIATED/SAVING
// implicitly upgrades the job to PROCESSING.
func (s *Store) UpdateStage(id, label string, percent int) error {
	if percent < 0 || percent > 100 {
		return apperr.Validation("progress percent %d out of range", percent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("upload job %s not found", id)
	}
	if job.Status.terminal() {
		return nil
	}

	if percent > 0 && (job.Status == StatusInitiated || job.Status == StatusSaving) {
		job.Status = StatusProcessing
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	job.CurrentStage = label
	job.UpdatedAt = s.now()
	return nil
}

// MarkSaving transitions INITIATED -> SAVING, the only forward transition
// UpdateStage's implicit upgrade rule does not cover on its own.
func (s *Store) MarkSaving(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("upload job %s not found", id)
	}
	if job.Status.terminal() {
		return nil
	}
	if job.Status == StatusInitiated {
		job.Status = StatusSaving
	}
	job.UpdatedAt = s.now()
	return nil
}

// RecordResult marks the job COMPLETED with its final payload.
func (s *Store) RecordResult(id string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperr.NotFound("upload job %s not found", id)
	}
	if job.Status.terminal() {
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
		return apperr.NotFound("upload job %s not found", id)
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
		return nil, apperr.NotFound("upload job %s not found", id)
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

// Stats summarizes job counts by status.
type Stats struct {
	Total      int
	ByStatus   map[Status]int
}

// Stats returns a snapshot of job counts grouped by status.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{ByStatus: make(map[Status]int)}
	for _, j := range s.jobs {
		st.Total++
		st.ByStatus[j.Status]++
	}
	return st
}

func (j *Job) copy() *Job {
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}
