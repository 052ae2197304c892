package store

import (
	"errors"
	"sync"
	"time"

	"github.com/mfigueroa/audex/pkg/models"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobExists     = errors.New("job already exists")
	ErrTerminalState = errors.New("job is in a terminal state")
)

// Registry is the in-memory job registry. It exclusively owns Job records:
// records are never removed, so history stays queryable for the life of the
// process. All writes to a record after creation go through Registry methods,
// which enforce terminal-state immutability and the monotonic progress clamp.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*models.Job),
	}
}

// Create adds a new job record. The record starts queued with zero progress.
func (r *Registry) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return ErrJobExists
	}
	job.Status = models.JobStatusQueued
	job.Progress = 0
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	r.jobs[job.ID] = job
	return nil
}

// Get returns a snapshot copy of a job, or nil if the id is unknown.
// Callers never receive a pointer into the registry.
func (r *Registry) Get(id string) *models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

// All returns snapshot copies of every job, newest first.
func (r *Registry) All() []*models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	// Newest first for listings
	for i := 0; i < len(jobs); i++ {
		for j := i + 1; j < len(jobs); j++ {
			if jobs[j].CreatedAt.After(jobs[i].CreatedAt) {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
		}
	}
	return jobs
}

// CountByStatus returns the number of jobs per status
func (r *Registry) CountByStatus() map[models.JobStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.JobStatus]int)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

// SetProcessing transitions a job into processing and resets its progress.
func (r *Registry) SetProcessing(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if err := models.ValidateTransition(job.Status, models.JobStatusProcessing); err != nil {
		return err
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.Progress = 0
	job.StartedAt = &now
	return nil
}

// SetProgress applies a progress report. Values are clamped to [0,100] and
// regressive or out-of-order reports are dropped silently; progress only
// changes while the job is processing. This is the single point where the
// monotonicity guarantee is enforced.
func (r *Registry) SetProgress(id string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != models.JobStatusProcessing {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > job.Progress {
		job.Progress = progress
	}
}

// SetTerminal moves a job into a terminal state exactly once. A job already
// in a terminal state is never rewritten: the first terminal transition wins.
// On completed the progress is forced to 100 and the result attached; on
// failed a non-empty error message is recorded.
func (r *Registry) SetTerminal(id string, status models.JobStatus, errMsg string, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if models.IsTerminalState(job.Status) {
		return ErrTerminalState
	}
	if err := models.ValidateTransition(job.Status, status); err != nil {
		return err
	}

	now := time.Now()
	job.Status = status
	job.CompletedAt = &now

	switch status {
	case models.JobStatusCompleted:
		job.Progress = 100
		job.Result = result
		job.Error = ""
	case models.JobStatusFailed:
		if errMsg == "" {
			errMsg = "audio extraction failed"
		}
		job.Error = errMsg
	case models.JobStatusCancelled:
		job.Error = ""
	}
	return nil
}
