package db

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus constants. A run that ends as invalid input is stored as failed.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// DefaultSessionJobsLimit caps ListSessionJobs when no limit is given.
const DefaultSessionJobsLimit = 20

// Session is an anonymous caller that owns a history of jobs.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is the persisted record of one idea evaluation.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	OriginalIdea  string     `json:"original_idea"`
	CurrentIdea   string     `json:"current_idea"`
	Status        string     `json:"status"`
	PivotAttempts int        `json:"pivot_attempts"`
	FinalReport   *string    `json:"final_report,omitempty"`
	ReportType    *string    `json:"report_type,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// IsFinished reports whether the job reached completed or failed.
func (j *Job) IsFinished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobStep is one stage execution within a job.
type JobStep struct {
	ID           uuid.UUID      `json:"id"`
	JobID        uuid.UUID      `json:"job_id"`
	NodeName     string         `json:"node_name"`
	PivotAttempt int            `json:"pivot_attempt"`
	InputState   map[string]any `json:"input_state"`
	OutputState  map[string]any `json:"output_state"`
	Error        *string        `json:"error,omitempty"`
	DurationMs   int            `json:"duration_ms"`
	Timestamp    time.Time      `json:"timestamp"`
}

// JobStepInput is what the execution wrapper records after each stage.
type JobStepInput struct {
	JobID        uuid.UUID
	NodeName     string
	PivotAttempt int
	InputState   map[string]any
	OutputState  map[string]any
	Error        string
	DurationMs   int
}

// PivotEntry is a persisted pivot record.
type PivotEntry struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	AttemptNum   int       `json:"attempt_num"`
	OriginalIdea string    `json:"original_idea"`
	PivotedIdea  string    `json:"pivoted_idea"`
	Reason       string    `json:"reason"`
	Score        int       `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
}
