package db

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_token VARCHAR(64) NOT NULL UNIQUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS jobs (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id     UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    original_idea  TEXT NOT NULL,
    current_idea   TEXT NOT NULL,
    status         VARCHAR(16) NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending', 'running', 'completed', 'failed')),
    pivot_attempts INTEGER NOT NULL DEFAULT 0,
    final_report   TEXT,
    report_type    VARCHAR(32),
    error_message  TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS job_steps (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    job_id        UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    node_name     VARCHAR(64) NOT NULL,
    pivot_attempt INTEGER NOT NULL DEFAULT 0,
    input_state   JSONB NOT NULL DEFAULT '{}',
    output_state  JSONB NOT NULL DEFAULT '{}',
    error         TEXT,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    timestamp     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pivot_history (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    job_id        UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    attempt_num   INTEGER NOT NULL,
    original_idea TEXT NOT NULL,
    pivoted_idea  TEXT NOT NULL,
    reason        TEXT NOT NULL DEFAULT '',
    score         INTEGER NOT NULL,
    timestamp     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (job_id, attempt_num)
);

CREATE INDEX IF NOT EXISTS idx_jobs_session_id     ON jobs(session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_job_steps_job_id    ON job_steps(job_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_pivot_history_job_id ON pivot_history(job_id, attempt_num);
`

// Migrate creates the sessions, jobs, job_steps and pivot_history tables if they don't exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// DropSchema drops every table Migrate creates.
func (db *DB) DropSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `DROP TABLE IF EXISTS pivot_history, job_steps, jobs, sessions CASCADE;`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}
