package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
)

// Snapshot limits for persisted stage output.
const (
	MaxSnapshotString = 5000
	MaxSnapshotList   = 20
	TruncatedMarker   = "... [truncated]"
)

// StepRecorder persists one record per stage execution.
type StepRecorder interface {
	SaveJobStep(ctx context.Context, step db.JobStepInput) error
}

// Node is a wrapped stage. It applies its own update to the state and never
// fails: stage errors become status failed.
type Node func(ctx context.Context, state *types.RunState)

// Wrapper times stages, isolates their failures and records their executions.
type Wrapper struct {
	recorder StepRecorder
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewWrapper creates a Wrapper. A nil recorder disables step persistence.
func NewWrapper(recorder StepRecorder, logger logrus.FieldLogger) *Wrapper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Wrapper{recorder: recorder, logger: logger, now: time.Now}
}

// Wrap turns a stage into a graph node.
func (w *Wrapper) Wrap(stage steps.Stage) Node {
	name := stage.Name()
	return func(ctx context.Context, state *types.RunState) {
		start := w.now()
		input := state.Snapshot()
		attempt := state.PivotAttempts

		result := w.invoke(ctx, stage, state)
		if !result.Failed() {
			if err := state.Apply(result.Update); err != nil {
				result = steps.Failure(fmt.Errorf("apply update: %w", err))
			}
		}
		duration := int(w.now().Sub(start).Milliseconds())

		log := w.logger.WithFields(logrus.Fields{
			"job_id":        state.JobID,
			"node":          name,
			"pivot_attempt": attempt,
			"duration_ms":   duration,
		})

		record := db.JobStepInput{
			NodeName:     name,
			PivotAttempt: attempt,
			InputState:   input,
			DurationMs:   duration,
		}
		if result.Failed() {
			msg := result.Err.Error()
			log.WithError(result.Err).Error("stage failed")
			_ = state.Apply(types.StateUpdate{
				Status: types.StatusFailed,
				Error:  fmt.Sprintf("Node '%s' failed: %s", name, msg),
			})
			record.OutputState = map[string]any{}
			record.Error = msg
		} else {
			log.WithField("status", state.Status).Debug("stage complete")
			record.OutputState = outputSnapshot(result.Update, state.UpdatedAt)
		}

		w.record(ctx, log, state.JobID, record)
	}
}

// invoke runs the stage after checking its inputs. A panic is reported as a
// failure like any other error.
func (w *Wrapper) invoke(ctx context.Context, stage steps.Stage, state *types.RunState) (result steps.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = steps.Failure(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := steps.ValidateDependencies(state, stage.Name()); err != nil {
		return steps.Failure(err)
	}
	return stage.Run(ctx, state)
}

func (w *Wrapper) record(ctx context.Context, log logrus.FieldLogger, jobID string, record db.JobStepInput) {
	if w.recorder == nil {
		return
	}
	id, err := uuid.Parse(jobID)
	if err != nil {
		log.WithError(err).Warn("failed to save step: invalid job id")
		return
	}
	record.JobID = id
	if err := w.recorder.SaveJobStep(ctx, record); err != nil {
		log.WithError(err).Warn("failed to save step")
	}
}

func outputSnapshot(u types.StateUpdate, updatedAt time.Time) map[string]any {
	out := map[string]any{}
	if data, err := json.Marshal(u); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	out["updated_at"] = updatedAt.Format(time.RFC3339)
	return SanitizeOutput(out)
}

// SanitizeOutput caps a decoded JSON object for storage. Strings longer than
// MaxSnapshotString characters and lists longer than MaxSnapshotList are cut and marked, at
// any depth. The input is not modified.
func SanitizeOutput(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		if utf8.RuneCountInString(val) > MaxSnapshotString {
			return string([]rune(val)[:MaxSnapshotString]) + TruncatedMarker
		}
		return val
	case map[string]any:
		return SanitizeOutput(val)
	case []any:
		n := len(val)
		if n > MaxSnapshotList {
			n = MaxSnapshotList
		}
		items := make([]any, 0, n+1)
		for _, item := range val[:n] {
			items = append(items, sanitizeValue(item))
		}
		if len(val) > MaxSnapshotList {
			items = append(items, TruncatedMarker)
		}
		return items
	default:
		return v
	}
}
