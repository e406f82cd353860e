package types

import (
	"github.com/go-playground/validator/v10"
)

// RunRequest is the body accepted by the job endpoints.
type RunRequest struct {
	Idea string `json:"idea" validate:"required,max=2000"`
}

// Validate validates the RunRequest using the validator.
func (r *RunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// RunResult is what a caller receives once a job reaches a terminal state.
type RunResult struct {
	JobID      string     `json:"job_id"`
	Status     Status     `json:"status"`
	ReportType ReportType `json:"report_type,omitempty"`
	Error      string     `json:"error,omitempty"`
}
