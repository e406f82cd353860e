package pipeline

import (
	"github.com/jonathan/idea-scout/internal/types"
)

// Route is the outcome of a routing decision: the edge the graph follows next.
type Route string

// Routes. The two write routes reach the same writer node; they differ only in
// which report the score will select.
const (
	RouteMarketResearch Route = "market_research"
	RouteCompetitors    Route = "competitor_analysis"
	RouteEvaluate       Route = "evaluate"
	RoutePivot          Route = "pivot"
	RouteWriteSuccess   Route = "write_success"
	RouteWriteFailure   Route = "write_failure"
	RouteHandleInvalid  Route = "handle_invalid"
	RouteEnd            Route = "end"
)

// RouteAfterValidation sends valid ideas to research. A failed validator ends the
// run without a report; a rejected idea goes to the invalid-input handler.
func RouteAfterValidation(state *types.RunState) Route {
	switch {
	case state.Status == types.StatusFailed:
		return RouteEnd
	case state.Status == types.StatusInvalidInput:
		return RouteHandleInvalid
	case state.Validation != nil && !state.Validation.IsValid:
		return RouteHandleInvalid
	default:
		return RouteMarketResearch
	}
}

// RouteAfterStage follows next unless the stage failed, in which case the run
// goes straight to the failure report.
func RouteAfterStage(state *types.RunState, next Route) Route {
	if state.Status == types.StatusFailed {
		return RouteWriteFailure
	}
	return next
}

// RouteAfterDevilsAdvocate decides between passing, pivoting and giving up.
// A missing evaluation scores 0 and can never pass.
func RouteAfterDevilsAdvocate(state *types.RunState, threshold, maxPivotAttempts int) Route {
	if state.Status == types.StatusFailed {
		return RouteWriteFailure
	}
	if state.Score() > threshold {
		return RouteWriteSuccess
	}
	if state.PivotAttempts < maxPivotAttempts {
		return RoutePivot
	}
	return RouteWriteFailure
}

// RouteAfterDebate passes or fails the idea. The debate never loops; any pivot it
// made is already in the state.
func RouteAfterDebate(state *types.RunState, threshold int) Route {
	if state.Status != types.StatusFailed && state.Score() > threshold {
		return RouteWriteSuccess
	}
	return RouteWriteFailure
}
