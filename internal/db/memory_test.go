package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/idea-scout/internal/types"
)

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s, err := m.CreateSession(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Token, 64)

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)

	byToken, err := m.GetSessionByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, byToken.ID)

	_, err = m.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSessionByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_JobLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s, err := m.CreateSession(ctx)
	require.NoError(t, err)

	job, err := m.CreateJob(ctx, s.ID, "Uber for dog walking")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, job.OriginalIdea, job.CurrentIdea)
	assert.False(t, job.IsFinished())

	require.NoError(t, m.MarkJobRunning(ctx, job.ID))
	require.NoError(t, m.UpdateJobIdea(ctx, job.ID, "Dog walking for seniors", 1))
	require.NoError(t, m.CompleteJob(ctx, job.ID, "# memo", types.ReportInvestmentMemo))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, got.Status)
	assert.Equal(t, "Dog walking for seniors", got.CurrentIdea)
	assert.Equal(t, "Uber for dog walking", got.OriginalIdea)
	assert.Equal(t, 1, got.PivotAttempts)
	require.NotNil(t, got.FinalReport)
	assert.Equal(t, "# memo", *got.FinalReport)
	require.NotNil(t, got.ReportType)
	assert.Equal(t, "investment_memo", *got.ReportType)
	assert.NotNil(t, got.CompletedAt)
	assert.Nil(t, got.ErrorMessage)
	assert.True(t, got.IsFinished())
}

func TestMemoryStore_FailJob(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s, _ := m.CreateSession(ctx)
	job, _ := m.CreateJob(ctx, s.ID, "idea")

	require.NoError(t, m.FailJob(ctx, job.ID, "Input is too short. Please describe a startup idea."))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "too short")

	assert.ErrorIs(t, m.FailJob(ctx, uuid.New(), "x"), ErrNotFound)
}

func TestMemoryStore_CreateJobUnknownSession(t *testing.T) {
	_, err := NewMemoryStore().CreateJob(context.Background(), uuid.New(), "idea")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListSessionJobs_NewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s, _ := m.CreateSession(ctx)
	other, _ := m.CreateSession(ctx)

	var ids []uuid.UUID
	for i := 0; i < 25; i++ {
		j, err := m.CreateJob(ctx, s.ID, "idea")
		require.NoError(t, err)
		ids = append(ids, j.ID)
	}
	_, _ = m.CreateJob(ctx, other.ID, "someone else's idea")

	jobs, err := m.ListSessionJobs(ctx, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, jobs, DefaultSessionJobsLimit)
	assert.Equal(t, ids[24], jobs[0].ID)
	assert.Equal(t, ids[5], jobs[19].ID)

	jobs, err = m.ListSessionJobs(ctx, s.ID, 3)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = m.ListSessionJobs(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMemoryStore_StepsAndPivots(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s, _ := m.CreateSession(ctx)
	job, _ := m.CreateJob(ctx, s.ID, "idea")

	input := map[string]any{"current_idea": "idea", "pivot_attempts": 0, "status": "validated"}
	require.NoError(t, m.SaveJobStep(ctx, JobStepInput{JobID: job.ID, NodeName: "market_researcher", InputState: input, DurationMs: 12}))
	require.NoError(t, m.SaveJobStep(ctx, JobStepInput{JobID: job.ID, NodeName: "competitor_analyst", Error: "boom"}))
	input["status"] = "mutated"

	steps, err := m.ListJobSteps(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "market_researcher", steps[0].NodeName)
	assert.Equal(t, "validated", steps[0].InputState["status"], "stored state is a copy")
	assert.Nil(t, steps[0].Error)
	require.NotNil(t, steps[1].Error)
	assert.Equal(t, "boom", *steps[1].Error)

	now := time.Now()
	require.NoError(t, m.SavePivot(ctx, job.ID, types.PivotRecord{AttemptNum: 2, OriginalIdea: "b", PivotedIdea: "c", Score: 3, Timestamp: now}))
	require.NoError(t, m.SavePivot(ctx, job.ID, types.PivotRecord{AttemptNum: 1, OriginalIdea: "a", PivotedIdea: "b", Score: 2, Timestamp: now}))
	require.NoError(t, m.SavePivot(ctx, job.ID, types.PivotRecord{AttemptNum: 1, OriginalIdea: "dup", PivotedIdea: "dup"}))

	pivots, err := m.ListPivots(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, pivots, 2)
	assert.Equal(t, 1, pivots[0].AttemptNum)
	assert.Equal(t, "a", pivots[0].OriginalIdea)
	assert.Equal(t, 2, pivots[1].AttemptNum)

	assert.ErrorIs(t, m.SaveJobStep(ctx, JobStepInput{JobID: uuid.New()}), ErrNotFound)
	assert.ErrorIs(t, m.SavePivot(ctx, uuid.New(), types.PivotRecord{}), ErrNotFound)
}
