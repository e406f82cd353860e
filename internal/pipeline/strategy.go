package pipeline

import (
	"context"

	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
)

// EvaluationStrategy turns the accumulated research into a score and decides
// where the run goes next. The router and writer never know which one ran.
type EvaluationStrategy interface {
	// Name is the node name recorded in the step log.
	Name() string
	Evaluate(ctx context.Context, state *types.RunState) steps.Result
	Route(state *types.RunState) Route
	// PivotStage revises the idea on RoutePivot. Nil for strategies that never loop.
	PivotStage() steps.Stage
}

// NewEvaluationStrategy picks the debate panel or the devil's-advocate loop.
// It is called once when the graph is built.
func NewEvaluationStrategy(debate bool, deps *steps.Deps) EvaluationStrategy {
	if debate {
		return &debateStrategy{panel: steps.NewDebatePanel(deps), settings: deps.Settings}
	}
	return &devilsAdvocateStrategy{
		critic:   steps.NewDevilsAdvocate(deps),
		pivot:    steps.NewApplyPivot(deps),
		settings: deps.Settings,
	}
}

type devilsAdvocateStrategy struct {
	critic   *steps.DevilsAdvocate
	pivot    *steps.ApplyPivot
	settings steps.Settings
}

func (s *devilsAdvocateStrategy) Name() string { return s.critic.Name() }

func (s *devilsAdvocateStrategy) Evaluate(ctx context.Context, state *types.RunState) steps.Result {
	return s.critic.Run(ctx, state)
}

func (s *devilsAdvocateStrategy) Route(state *types.RunState) Route {
	return RouteAfterDevilsAdvocate(state, s.settings.Threshold, s.settings.MaxPivotAttempts)
}

func (s *devilsAdvocateStrategy) PivotStage() steps.Stage { return s.pivot }

type debateStrategy struct {
	panel    *steps.DebatePanel
	settings steps.Settings
}

func (s *debateStrategy) Name() string { return s.panel.Name() }

func (s *debateStrategy) Evaluate(ctx context.Context, state *types.RunState) steps.Result {
	return s.panel.Run(ctx, state)
}

func (s *debateStrategy) Route(state *types.RunState) Route {
	return RouteAfterDebate(state, s.settings.Threshold)
}

func (s *debateStrategy) PivotStage() steps.Stage { return nil }

// evaluationStage adapts a strategy to the Stage interface so it can be wrapped
// like any other node.
type evaluationStage struct {
	strategy EvaluationStrategy
}

func (s evaluationStage) Name() string { return s.strategy.Name() }

func (s evaluationStage) Run(ctx context.Context, state *types.RunState) steps.Result {
	return s.strategy.Evaluate(ctx, state)
}
