// Package types defines the run state threaded through the analysis graph and the
// structured records each stage produces.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Status is the execution phase of a run.
type Status string

// Status values, in the order a run normally visits them.
const (
	StatusStarted              Status = "started"
	StatusValidating           Status = "validating"
	StatusValidated            Status = "validated"
	StatusInvalidInput         Status = "invalid_input"
	StatusResearching          Status = "researching"
	StatusAnalyzingCompetitors Status = "analyzing_competitors"
	StatusCritiquing           Status = "critiquing"
	StatusDebating             Status = "debating"
	StatusPivoting             Status = "pivoting"
	StatusWriting              Status = "writing"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

var knownStatuses = map[Status]bool{
	StatusStarted: true, StatusValidating: true, StatusValidated: true,
	StatusInvalidInput: true, StatusResearching: true, StatusAnalyzingCompetitors: true,
	StatusCritiquing: true, StatusDebating: true, StatusPivoting: true,
	StatusWriting: true, StatusCompleted: true, StatusFailed: true,
}

// Valid reports whether s is one of the known phases.
func (s Status) Valid() bool {
	return knownStatuses[s]
}

// IsTerminal reports whether no stage runs after s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusInvalidInput
}

func (s Status) String() string {
	return string(s)
}

// ReportType identifies which report template the writer produced.
type ReportType string

// Report templates.
const (
	ReportInvestmentMemo ReportType = "investment_memo"
	ReportMarketReality  ReportType = "market_reality"
)

// PivotRecord captures one revision of the idea. Records are never modified once created.
type PivotRecord struct {
	AttemptNum   int       `json:"attempt_num"`
	OriginalIdea string    `json:"original_idea"`
	PivotedIdea  string    `json:"pivoted_idea"`
	Reason       string    `json:"reason"`
	Score        int       `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
}

// MergePivotHistory concatenates update onto existing. Neither input is modified.
func MergePivotHistory(existing, update []PivotRecord) []PivotRecord {
	merged := make([]PivotRecord, 0, len(existing)+len(update))
	merged = append(merged, existing...)
	return append(merged, update...)
}

// RunState is the single record threaded through every stage of one job.
type RunState struct {
	JobID         string        `json:"job_id"`
	SessionID     string        `json:"session_id"`
	OriginalIdea  string        `json:"original_idea"`
	CurrentIdea   string        `json:"current_idea"`
	PivotAttempts int           `json:"pivot_attempts"`
	PivotHistory  []PivotRecord `json:"pivot_history"`

	Validation         *ValidationResult   `json:"validation,omitempty"`
	MarketResearch     *MarketResearch     `json:"market_research,omitempty"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis,omitempty"`
	Evaluation         *Evaluation         `json:"evaluation,omitempty"`
	Debate             *DebateVerdict      `json:"debate,omitempty"`

	FinalReport string     `json:"final_report,omitempty"`
	ReportType  ReportType `json:"report_type,omitempty"`

	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRunState creates the initial state for a job.
func NewRunState(jobID, sessionID, idea string) *RunState {
	now := time.Now().UTC()
	idea = strings.TrimSpace(idea)
	return &RunState{
		JobID:        jobID,
		SessionID:    sessionID,
		OriginalIdea: idea,
		CurrentIdea:  idea,
		PivotHistory: []PivotRecord{},
		Status:       StatusStarted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Score returns the evaluation score, or 0 when no evaluation has run.
func (s *RunState) Score() int {
	if s.Evaluation == nil {
		return 0
	}
	return s.Evaluation.Score
}

// Snapshot is the redacted view of a state persisted alongside each stage execution.
func (s *RunState) Snapshot() map[string]any {
	return map[string]any{
		"current_idea":   s.CurrentIdea,
		"pivot_attempts": s.PivotAttempts,
		"status":         string(s.Status),
	}
}

// StateUpdate is the partial update a stage returns. Nil fields leave the state untouched.
type StateUpdate struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	CurrentIdea   *string       `json:"current_idea,omitempty"`
	PivotAttempts *int          `json:"pivot_attempts,omitempty"`
	PivotHistory  []PivotRecord `json:"pivot_history,omitempty"`

	Validation         *ValidationResult   `json:"validation,omitempty"`
	MarketResearch     *MarketResearch     `json:"market_research,omitempty"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis,omitempty"`
	Evaluation         *Evaluation         `json:"evaluation,omitempty"`
	Debate             *DebateVerdict      `json:"debate,omitempty"`

	// ClearAnalysis drops research, competitor and evaluation results so the next
	// iteration starts fresh. Validation is kept.
	ClearAnalysis bool `json:"clear_analysis,omitempty"`

	FinalReport *string     `json:"final_report,omitempty"`
	ReportType  *ReportType `json:"report_type,omitempty"`
}

// Apply merges u into s and refreshes UpdatedAt.
func (s *RunState) Apply(u StateUpdate) error {
	if !u.Status.Valid() {
		return fmt.Errorf("invalid status %q", u.Status)
	}
	if s.FinalReport != "" && (u.CurrentIdea != nil || u.ClearAnalysis) {
		return fmt.Errorf("state is sealed by a final report")
	}
	if u.CurrentIdea != nil && strings.TrimSpace(*u.CurrentIdea) == "" {
		return fmt.Errorf("current idea cannot be empty")
	}
	if u.PivotAttempts != nil {
		if *u.PivotAttempts < s.PivotAttempts {
			return fmt.Errorf("pivot attempts cannot decrease (%d -> %d)", s.PivotAttempts, *u.PivotAttempts)
		}
		if n := len(s.PivotHistory) + len(u.PivotHistory); *u.PivotAttempts != n {
			return fmt.Errorf("pivot attempts %d do not match pivot history length %d", *u.PivotAttempts, n)
		}
	}

	if u.ClearAnalysis {
		s.MarketResearch = nil
		s.CompetitorAnalysis = nil
		s.Evaluation = nil
	}
	if u.CurrentIdea != nil {
		s.CurrentIdea = *u.CurrentIdea
	}
	if u.PivotAttempts != nil {
		s.PivotAttempts = *u.PivotAttempts
	}
	if len(u.PivotHistory) > 0 {
		s.PivotHistory = MergePivotHistory(s.PivotHistory, u.PivotHistory)
	}
	if u.Validation != nil {
		s.Validation = u.Validation
	}
	if u.MarketResearch != nil {
		s.MarketResearch = u.MarketResearch
	}
	if u.CompetitorAnalysis != nil {
		s.CompetitorAnalysis = u.CompetitorAnalysis
	}
	if u.Evaluation != nil {
		s.Evaluation = u.Evaluation
	}
	if u.Debate != nil {
		s.Debate = u.Debate
	}
	if u.FinalReport != nil {
		s.FinalReport = *u.FinalReport
	}
	if u.ReportType != nil {
		s.ReportType = *u.ReportType
	}

	s.Status = u.Status
	if u.Status == StatusFailed || u.Status == StatusInvalidInput {
		s.Error = u.Error
	} else {
		s.Error = ""
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}
