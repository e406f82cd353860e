package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/idea-scout/internal/types"
)

// MemoryStore is a Store kept in process memory. It backs CLI runs without a
// database and the tests of everything above this package.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
	jobs     map[uuid.UUID]Job
	jobOrder []uuid.UUID
	steps    map[uuid.UUID][]JobStep
	pivots   map[uuid.UUID][]PivotEntry
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]Session),
		jobs:     make(map[uuid.UUID]Job),
		steps:    make(map[uuid.UUID][]JobStep),
		pivots:   make(map[uuid.UUID][]PivotEntry),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Migrate is a no-op.
func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) CreateSession(context.Context) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Session{ID: uuid.New(), Token: token, CreatedAt: m.now()}
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) GetSessionByToken(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.Token == token {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateJob(_ context.Context, sessionID uuid.UUID, idea string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("failed to create job: session %s: %w", sessionID, ErrNotFound)
	}
	j := Job{
		ID:           uuid.New(),
		SessionID:    sessionID,
		OriginalIdea: idea,
		CurrentIdea:  idea,
		Status:       JobStatusPending,
		CreatedAt:    m.now(),
	}
	m.jobs[j.ID] = j
	m.jobOrder = append(m.jobOrder, j.ID)
	return &j, nil
}

func (m *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (m *MemoryStore) ListSessionJobs(_ context.Context, sessionID uuid.UUID, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultSessionJobsLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := []Job{}
	for i := len(m.jobOrder) - 1; i >= 0 && len(jobs) < limit; i-- {
		if j := m.jobs[m.jobOrder[i]]; j.SessionID == sessionID {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func (m *MemoryStore) MarkJobRunning(_ context.Context, id uuid.UUID) error {
	return m.updateJob(id, func(j *Job) { j.Status = JobStatusRunning })
}

func (m *MemoryStore) UpdateJobIdea(_ context.Context, id uuid.UUID, currentIdea string, pivotAttempts int) error {
	return m.updateJob(id, func(j *Job) {
		j.CurrentIdea = currentIdea
		j.PivotAttempts = pivotAttempts
	})
}

func (m *MemoryStore) CompleteJob(_ context.Context, id uuid.UUID, report string, reportType types.ReportType) error {
	return m.updateJob(id, func(j *Job) {
		rt := string(reportType)
		now := m.now()
		j.Status = JobStatusCompleted
		j.FinalReport = &report
		j.ReportType = &rt
		j.ErrorMessage = nil
		j.CompletedAt = &now
	})
}

func (m *MemoryStore) FailJob(_ context.Context, id uuid.UUID, message string) error {
	return m.updateJob(id, func(j *Job) {
		now := m.now()
		j.Status = JobStatusFailed
		j.ErrorMessage = &message
		j.CompletedAt = &now
	})
}

func (m *MemoryStore) updateJob(id uuid.UUID, fn func(j *Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(&j)
	m.jobs[id] = j
	return nil
}

func (m *MemoryStore) SaveJobStep(_ context.Context, in JobStepInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[in.JobID]; !ok {
		return fmt.Errorf("failed to save job step %s: %w", in.NodeName, ErrNotFound)
	}
	step := JobStep{
		ID:           uuid.New(),
		JobID:        in.JobID,
		NodeName:     in.NodeName,
		PivotAttempt: in.PivotAttempt,
		InputState:   maps.Clone(in.InputState),
		OutputState:  maps.Clone(in.OutputState),
		DurationMs:   in.DurationMs,
		Timestamp:    m.now(),
	}
	if in.Error != "" {
		msg := in.Error
		step.Error = &msg
	}
	m.steps[in.JobID] = append(m.steps[in.JobID], step)
	return nil
}

func (m *MemoryStore) ListJobSteps(_ context.Context, jobID uuid.UUID) ([]JobStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]JobStep{}, m.steps[jobID]...), nil
}

func (m *MemoryStore) SavePivot(_ context.Context, jobID uuid.UUID, rec types.PivotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("failed to save pivot %d: %w", rec.AttemptNum, ErrNotFound)
	}
	for _, p := range m.pivots[jobID] {
		if p.AttemptNum == rec.AttemptNum {
			return nil
		}
	}
	m.pivots[jobID] = append(m.pivots[jobID], PivotEntry{
		ID:           uuid.New(),
		JobID:        jobID,
		AttemptNum:   rec.AttemptNum,
		OriginalIdea: rec.OriginalIdea,
		PivotedIdea:  rec.PivotedIdea,
		Reason:       rec.Reason,
		Score:        rec.Score,
		Timestamp:    rec.Timestamp,
	})
	slices.SortFunc(m.pivots[jobID], func(a, b PivotEntry) int { return a.AttemptNum - b.AttemptNum })
	return nil
}

func (m *MemoryStore) ListPivots(_ context.Context, jobID uuid.UUID) ([]PivotEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PivotEntry{}, m.pivots[jobID]...), nil
}
