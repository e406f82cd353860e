package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/idea-scout/internal/types"
)

const jobColumns = `id, session_id, original_idea, current_idea, status, pivot_attempts,
	final_report, report_type, error_message, created_at, completed_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.SessionID, &j.OriginalIdea, &j.CurrentIdea, &j.Status, &j.PivotAttempts,
		&j.FinalReport, &j.ReportType, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a pending job for the session
func (db *DB) CreateJob(ctx context.Context, sessionID uuid.UUID, idea string) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, session_id, original_idea, current_idea, status)
		 VALUES ($1, $2, $3, $3, 'pending')
		 RETURNING `+jobColumns,
		uuid.New(), sessionID, idea,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return j, nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// ListSessionJobs returns the session's jobs, newest first
func (db *DB) ListSessionJobs(ctx context.Context, sessionID uuid.UUID, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultSessionJobsLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE session_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// MarkJobRunning moves a job from pending to running
func (db *DB) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	return db.execJob(ctx, "mark job running",
		`UPDATE jobs SET status = 'running' WHERE id = $1`, id)
}

// UpdateJobIdea records the idea currently under analysis and the pivot count
func (db *DB) UpdateJobIdea(ctx context.Context, id uuid.UUID, currentIdea string, pivotAttempts int) error {
	return db.execJob(ctx, "update job idea",
		`UPDATE jobs SET current_idea = $2, pivot_attempts = $3 WHERE id = $1`,
		id, currentIdea, pivotAttempts)
}

// CompleteJob stores the final report and marks the job completed
func (db *DB) CompleteJob(ctx context.Context, id uuid.UUID, report string, reportType types.ReportType) error {
	return db.execJob(ctx, "complete job",
		`UPDATE jobs SET status = 'completed', final_report = $2, report_type = $3,
		        error_message = NULL, completed_at = NOW()
		 WHERE id = $1`,
		id, report, string(reportType))
}

// FailJob marks the job failed with a user-facing message
func (db *DB) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	return db.execJob(ctx, "fail job",
		`UPDATE jobs SET status = 'failed', error_message = $2, completed_at = NOW() WHERE id = $1`,
		id, message)
}

func (db *DB) execJob(ctx context.Context, op, query string, args ...any) error {
	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return nil
}
