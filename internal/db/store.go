package db

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/idea-scout/internal/types"
)

// ErrNotFound is returned when a session or job does not exist.
var ErrNotFound = errors.New("db: not found")

// Store is the persistence contract shared by the PostgreSQL and in-memory backends.
type Store interface {
	Migrate(ctx context.Context) error

	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	GetSessionByToken(ctx context.Context, token string) (*Session, error)

	CreateJob(ctx context.Context, sessionID uuid.UUID, idea string) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListSessionJobs(ctx context.Context, sessionID uuid.UUID, limit int) ([]Job, error)
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	UpdateJobIdea(ctx context.Context, id uuid.UUID, currentIdea string, pivotAttempts int) error
	CompleteJob(ctx context.Context, id uuid.UUID, report string, reportType types.ReportType) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error

	SaveJobStep(ctx context.Context, step JobStepInput) error
	ListJobSteps(ctx context.Context, jobID uuid.UUID) ([]JobStep, error)

	SavePivot(ctx context.Context, jobID uuid.UUID, rec types.PivotRecord) error
	ListPivots(ctx context.Context, jobID uuid.UUID) ([]PivotEntry, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)
