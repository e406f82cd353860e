package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/idea-scout/internal/types"
)

// SavePivot appends a pivot record to the job's history
func (db *DB) SavePivot(ctx context.Context, jobID uuid.UUID, rec types.PivotRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pivot_history (id, job_id, attempt_num, original_idea, pivoted_idea, reason, score, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (job_id, attempt_num) DO NOTHING`,
		uuid.New(), jobID, rec.AttemptNum, rec.OriginalIdea, rec.PivotedIdea, rec.Reason, rec.Score, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save pivot %d: %w", rec.AttemptNum, err)
	}
	return nil
}

// ListPivots returns the job's pivot history ordered by attempt
func (db *DB) ListPivots(ctx context.Context, jobID uuid.UUID) ([]PivotEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, attempt_num, original_idea, pivoted_idea, reason, score, timestamp
		 FROM pivot_history WHERE job_id = $1
		 ORDER BY attempt_num`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pivots: %w", err)
	}
	defer rows.Close()

	pivots := []PivotEntry{}
	for rows.Next() {
		var p PivotEntry
		if err := rows.Scan(&p.ID, &p.JobID, &p.AttemptNum, &p.OriginalIdea, &p.PivotedIdea,
			&p.Reason, &p.Score, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan pivot: %w", err)
		}
		pivots = append(pivots, p)
	}
	return pivots, rows.Err()
}
