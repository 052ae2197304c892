package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"     // Job is in the FIFO queue, not yet admitted
	JobStatusProcessing JobStatus = "processing" // Job holds a slot and the engine is running
	JobStatusCompleted  JobStatus = "completed"  // Engine finished successfully
	JobStatusFailed     JobStatus = "failed"     // Engine failed or the watchdog fired
	JobStatusCancelled  JobStatus = "cancelled"  // Explicitly cancelled by the caller
)

// Job represents one audio extraction request end-to-end.
// The registry owns the record; the scheduler is the only writer of the
// mutable fields after creation.
type Job struct {
	ID           string     `json:"id"`
	InputPath    string     `json:"input_path"`
	OutputPath   string     `json:"output_path"`
	OriginalName string     `json:"original_name"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"` // 0-100, non-decreasing while processing
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	Result       *Result    `json:"result,omitempty"`
}

// Result holds engine-produced metadata for a completed job.
// Opaque to the scheduler.
type Result struct {
	OutputPath      string  `json:"output_path"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	Codec           string  `json:"codec,omitempty"`
	Bitrate         string  `json:"bitrate,omitempty"`
}

// JobView is the read-only projection returned to callers of Status.
type JobView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	OutputPath string    `json:"output_path,omitempty"` // set iff completed
	Error      string    `json:"error,omitempty"`
}

// View builds the caller-facing projection of a job.
func (j *Job) View() JobView {
	v := JobView{
		ID:       j.ID,
		Name:     j.OriginalName,
		Status:   j.Status,
		Progress: j.Progress,
		Message:  statusMessage(j),
		Error:    j.Error,
	}
	if j.Status == JobStatusCompleted {
		v.OutputPath = j.OutputPath
	}
	return v
}

// statusMessage derives the human-readable message for a job view
func statusMessage(j *Job) string {
	switch j.Status {
	case JobStatusQueued:
		return "waiting in queue"
	case JobStatusProcessing:
		return "extracting audio"
	case JobStatusCompleted:
		return "audio extraction complete"
	case JobStatusFailed:
		return "audio extraction failed: " + j.Error
	case JobStatusCancelled:
		return "cancelled"
	default:
		return string(j.Status)
	}
}
