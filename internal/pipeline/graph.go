// Package pipeline wires the analysis stages into a graph and drives jobs through it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
)

// GraphOptions selects the topology and where stage executions are recorded.
type GraphOptions struct {
	// DebateMode uses the debate panel instead of the devil's-advocate pivot loop.
	DebateMode bool
	Recorder   StepRecorder
}

// NodeCallback observes the state after each node. It must not modify the state.
type NodeCallback func(node string, state *types.RunState)

// Graph is the assembled stage graph for one deployment. It holds no per-job
// state and is safe to share between concurrent runs.
type Graph struct {
	strategy       EvaluationStrategy
	nodes          map[string]Node
	maxTransitions int
	logger         logrus.FieldLogger
}

// NewGraph wraps every stage and wires the evaluation strategy.
func NewGraph(opts GraphOptions, deps *steps.Deps) *Graph {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	wrapper := NewWrapper(opts.Recorder, logger)
	strategy := NewEvaluationStrategy(opts.DebateMode, deps)

	nodes := map[string]Node{
		steps.StageInputValidator:    wrapper.Wrap(steps.NewInputValidator(deps)),
		steps.StageHandleInvalid:     wrapper.Wrap(steps.NewHandleInvalid()),
		steps.StageMarketResearcher:  wrapper.Wrap(steps.NewMarketResearcher(deps)),
		steps.StageCompetitorAnalyst: wrapper.Wrap(steps.NewCompetitorAnalyst(deps)),
		strategy.Name():              wrapper.Wrap(evaluationStage{strategy: strategy}),
		steps.StageWriter:            wrapper.Wrap(steps.NewWriter(deps)),
	}
	if pivot := strategy.PivotStage(); pivot != nil {
		nodes[pivot.Name()] = wrapper.Wrap(pivot)
	}

	// validator, research loop per pivot, writer, with slack
	maxTransitions := 4 + 4*(max(deps.Settings.MaxPivotAttempts, 0)+1) + 2

	return &Graph{
		strategy:       strategy,
		nodes:          nodes,
		maxTransitions: maxTransitions,
		logger:         logger,
	}
}

// Strategy returns the evaluation strategy the graph was built with.
func (g *Graph) Strategy() EvaluationStrategy { return g.strategy }

// Run drives state from the input validator to a terminal node, one stage at a
// time. Stage failures are already folded into the state; the only error is a
// routing loop that fails to terminate.
func (g *Graph) Run(ctx context.Context, state *types.RunState, onNode NodeCallback) error {
	node := steps.StageInputValidator
	for i := 0; node != ""; i++ {
		if i >= g.maxTransitions {
			return fmt.Errorf("graph did not terminate after %d nodes (last: %s)", i, node)
		}
		run, ok := g.nodes[node]
		if !ok {
			return fmt.Errorf("no node named %s", node)
		}
		run(ctx, state)
		if onNode != nil {
			onNode(node, state)
		}
		node = g.next(node, state)
	}
	return nil
}

// next returns the node after the given one, or "" when the run is over.
func (g *Graph) next(node string, state *types.RunState) string {
	var route Route
	switch node {
	case steps.StageInputValidator:
		route = RouteAfterValidation(state)
	case steps.StageMarketResearcher:
		route = RouteAfterStage(state, RouteCompetitors)
	case steps.StageCompetitorAnalyst:
		route = RouteAfterStage(state, RouteEvaluate)
	case g.strategy.Name():
		route = g.strategy.Route(state)
	case steps.StageApplyPivot:
		route = RouteAfterStage(state, RouteMarketResearch)
	default:
		route = RouteEnd
	}
	return g.nodeFor(route)
}

func (g *Graph) nodeFor(route Route) string {
	switch route {
	case RouteMarketResearch:
		return steps.StageMarketResearcher
	case RouteCompetitors:
		return steps.StageCompetitorAnalyst
	case RouteEvaluate:
		return g.strategy.Name()
	case RoutePivot:
		if pivot := g.strategy.PivotStage(); pivot != nil {
			return pivot.Name()
		}
		return steps.StageWriter
	case RouteWriteSuccess, RouteWriteFailure:
		return steps.StageWriter
	case RouteHandleInvalid:
		return steps.StageHandleInvalid
	default:
		return ""
	}
}
