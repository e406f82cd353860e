package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
)

// ReportTimeLayout is how the writer's timestamp placeholder is filled.
const ReportTimeLayout = "2006-01-02 15:04:05 UTC"

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	JobID   string       `json:"job_id"`
	Node    string       `json:"node,omitempty"`
	Status  types.Status `json:"status,omitempty"`
	Message string       `json:"message"`
}

// ProgressCallback is called when run progress occurs. It only observes.
type ProgressCallback func(event ProgressEvent)

// Runner creates jobs, drives them through the graph and persists the outcome.
type Runner struct {
	store  db.Store
	graph  *Graph
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewRunner creates a Runner. The graph should record steps to the same store.
func NewRunner(store db.Store, graph *Graph, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		store:  store,
		graph:  graph,
		logger: logger.WithField("component", "runner"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run creates a job for idea and executes it to a terminal state.
func (r *Runner) Run(ctx context.Context, sessionID uuid.UUID, idea string, progress ProgressCallback) (*types.RunResult, error) {
	job, err := r.Start(ctx, sessionID, idea)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, job, progress), nil
}

// Start creates the pending job row without running it.
func (r *Runner) Start(ctx context.Context, sessionID uuid.UUID, idea string) (*db.Job, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, errors.New("idea is required")
	}
	job, err := r.store.CreateJob(ctx, sessionID, strings.TrimSpace(idea))
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Execute drives a created job through the graph. Every outcome, including
// rejection and failure, is reported through the result rather than an error.
func (r *Runner) Execute(ctx context.Context, job *db.Job, progress ProgressCallback) *types.RunResult {
	jobID := job.ID.String()
	log := r.logger.WithField("job_id", jobID)
	emit := func(node string, status types.Status, msg string) {
		if progress != nil {
			progress(ProgressEvent{JobID: jobID, Node: node, Status: status, Message: msg})
		}
	}

	if err := r.store.MarkJobRunning(ctx, job.ID); err != nil {
		log.WithError(err).Warn("failed to mark job running")
	}
	emit("", types.StatusStarted, "Job created, starting analysis...")

	state := types.NewRunState(jobID, job.SessionID.String(), job.OriginalIdea)
	persisted := 0
	err := r.graph.Run(ctx, state, func(node string, st *types.RunState) {
		emit(node, st.Status, fmt.Sprintf("Completed: %s (Status: %s)", node, st.Status))
		if len(st.PivotHistory) > persisted {
			persisted = r.persistPivots(ctx, log, job.ID, st, persisted)
		}
	})
	if err != nil {
		return r.fail(ctx, log, job.ID, types.StatusFailed, err.Error(), emit)
	}

	switch state.Status {
	case types.StatusInvalidInput, types.StatusFailed:
		msg := state.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return r.fail(ctx, log, job.ID, state.Status, msg, emit)
	}

	if err := r.store.UpdateJobIdea(ctx, job.ID, state.CurrentIdea, state.PivotAttempts); err != nil {
		log.WithError(err).Warn("failed to save final idea")
	}
	report := strings.ReplaceAll(state.FinalReport, steps.TimestampPlaceholder, r.now().Format(ReportTimeLayout))
	if err := r.store.CompleteJob(ctx, job.ID, report, state.ReportType); err != nil {
		log.WithError(err).Error("failed to save final report")
		return r.fail(ctx, log, job.ID, types.StatusFailed, fmt.Sprintf("save report: %v", err), emit)
	}

	log.WithFields(logrus.Fields{
		"report_type":    state.ReportType,
		"pivot_attempts": state.PivotAttempts,
		"score":          state.Score(),
	}).Info("analysis complete")
	emit("", types.StatusCompleted, "Analysis complete!")

	return &types.RunResult{
		JobID:      jobID,
		Status:     types.StatusCompleted,
		ReportType: state.ReportType,
	}
}

// persistPivots saves the pivots recorded since the last save and returns the
// new count. Saving is idempotent per attempt number.
func (r *Runner) persistPivots(ctx context.Context, log logrus.FieldLogger, jobID uuid.UUID, state *types.RunState, from int) int {
	for _, rec := range state.PivotHistory[from:] {
		if err := r.store.SavePivot(ctx, jobID, rec); err != nil {
			log.WithError(err).WithField("attempt", rec.AttemptNum).Warn("failed to save pivot")
		}
	}
	if err := r.store.UpdateJobIdea(ctx, jobID, state.CurrentIdea, state.PivotAttempts); err != nil {
		log.WithError(err).Warn("failed to save pivoted idea")
	}
	return len(state.PivotHistory)
}

func (r *Runner) fail(ctx context.Context, log logrus.FieldLogger, jobID uuid.UUID, status types.Status, msg string,
	emit func(node string, status types.Status, msg string)) *types.RunResult {
	if err := r.store.FailJob(ctx, jobID, msg); err != nil {
		log.WithError(err).Warn("failed to mark job failed")
	}
	log.WithField("status", status).Warn(msg)
	emit("", status, "Error: "+msg)
	return &types.RunResult{JobID: jobID.String(), Status: status, Error: msg}
}
