package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SaveJobStep inserts one stage execution record
func (db *DB) SaveJobStep(ctx context.Context, step JobStepInput) error {
	inputJSON, err := marshalState(step.InputState)
	if err != nil {
		return fmt.Errorf("failed to marshal input state: %w", err)
	}
	outputJSON, err := marshalState(step.OutputState)
	if err != nil {
		return fmt.Errorf("failed to marshal output state: %w", err)
	}

	var errorMsg *string
	if step.Error != "" {
		errorMsg = &step.Error
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO job_steps (id, job_id, node_name, pivot_attempt, input_state, output_state, error, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), step.JobID, step.NodeName, step.PivotAttempt, inputJSON, outputJSON, errorMsg, step.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save job step %s: %w", step.NodeName, err)
	}
	return nil
}

// ListJobSteps returns every stage execution for a job in the order they ran
func (db *DB) ListJobSteps(ctx context.Context, jobID uuid.UUID) ([]JobStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, node_name, pivot_attempt, input_state, output_state, error, duration_ms, timestamp
		 FROM job_steps WHERE job_id = $1
		 ORDER BY timestamp, id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job steps: %w", err)
	}
	defer rows.Close()

	steps := []JobStep{}
	for rows.Next() {
		var step JobStep
		var inputJSON, outputJSON []byte
		if err := rows.Scan(&step.ID, &step.JobID, &step.NodeName, &step.PivotAttempt,
			&inputJSON, &outputJSON, &step.Error, &step.DurationMs, &step.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan job step: %w", err)
		}
		_ = json.Unmarshal(inputJSON, &step.InputState)
		_ = json.Unmarshal(outputJSON, &step.OutputState)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func marshalState(state map[string]any) ([]byte, error) {
	if state == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(state)
}
