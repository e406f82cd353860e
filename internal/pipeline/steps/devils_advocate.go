package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/idea-scout/internal/prompts"
	"github.com/jonathan/idea-scout/internal/types"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

// DefaultPivotReason is recorded when the evaluation gave no reason.
const DefaultPivotReason = "Score below threshold"

// DevilsAdvocate scores the current idea against the rubric and, at or below the
// threshold, proposes a pivot.
type DevilsAdvocate struct {
	deps *Deps
}

// NewDevilsAdvocate creates the critical evaluation stage.
func NewDevilsAdvocate(deps *Deps) *DevilsAdvocate {
	return &DevilsAdvocate{deps: deps}
}

func (s *DevilsAdvocate) Name() string { return StageDevilsAdvocate }

func (s *DevilsAdvocate) Run(ctx context.Context, state *types.RunState) Result {
	settings := s.deps.Settings

	system, err := prompts.Get("evaluation.json", "devils-advocate-system")
	if err != nil {
		return Failure(err)
	}
	prompt, err := prompts.Render("evaluation.json", "devils-advocate", map[string]string{
		"OriginalIdea":       state.OriginalIdea,
		"Idea":               state.CurrentIdea,
		"PivotAttempts":      strconv.Itoa(state.PivotAttempts),
		"MaxPivotAttempts":   strconv.Itoa(settings.MaxPivotAttempts),
		"PivotHistory":       formatPivotContext(state.PivotHistory),
		"MarketResearch":     formatMarketResearch(state.MarketResearch),
		"CompetitorAnalysis": formatCompetitorAnalysis(state.CompetitorAnalysis),
		"Threshold":          strconv.Itoa(settings.Threshold),
	})
	if err != nil {
		return Failure(err)
	}

	var eval types.Evaluation
	if err := s.deps.Reasoner.GenerateStructured(ctx, prompt, system, schemafiles.Evaluation, &eval); err != nil {
		return Failure(fmt.Errorf("evaluate idea: %w", err))
	}

	return Success(types.StateUpdate{
		Status:     types.StatusCritiquing,
		Evaluation: &eval,
	})
}

// ApplyPivot rewrites the idea from the last evaluation and clears the analysis so
// research runs again. A pivot is never skipped for want of a suggestion.
type ApplyPivot struct {
	deps *Deps
}

// NewApplyPivot creates the pivot stage.
func NewApplyPivot(deps *Deps) *ApplyPivot {
	return &ApplyPivot{deps: deps}
}

func (s *ApplyPivot) Name() string { return StageApplyPivot }

func (s *ApplyPivot) Run(_ context.Context, state *types.RunState) Result {
	eval := state.Evaluation
	if eval == nil {
		eval = &types.Evaluation{}
	}

	pivoted := strings.TrimSpace(eval.SuggestedPivot)
	if pivoted == "" {
		pivoted = strings.TrimSpace(eval.PivotRationale)
	}
	if pivoted == "" {
		pivoted = "Refined version of: " + state.CurrentIdea
	}

	reason := strings.TrimSpace(eval.Reason)
	if reason == "" {
		reason = DefaultPivotReason
	}

	attempt := state.PivotAttempts + 1
	record := types.PivotRecord{
		AttemptNum:   attempt,
		OriginalIdea: state.CurrentIdea,
		PivotedIdea:  pivoted,
		Reason:       reason,
		Score:        state.Score(),
		Timestamp:    s.deps.now(),
	}

	return Success(types.StateUpdate{
		Status:        types.StatusPivoting,
		CurrentIdea:   &pivoted,
		PivotAttempts: &attempt,
		PivotHistory:  []types.PivotRecord{record},
		ClearAnalysis: true,
	})
}
