// Package steps provides the analysis stages of an idea evaluation run, their
// registry and dependency validation.
package steps

import (
	"context"
	"fmt"

	"github.com/jonathan/idea-scout/internal/types"
)

// Stage names, as recorded in the step log.
const (
	StageInputValidator    = "input_validator"
	StageHandleInvalid     = "handle_invalid"
	StageMarketResearcher  = "market_researcher"
	StageCompetitorAnalyst = "competitor_analyst"
	StageDevilsAdvocate    = "devils_advocate"
	StageDebatePanel       = "debate_panel"
	StageApplyPivot        = "apply_pivot"
	StageWriter            = "writer"
)

// Stage categories
const (
	CategoryValidation = "validation"
	CategoryResearch   = "research"
	CategoryEvaluation = "evaluation"
	CategoryReporting  = "reporting"
)

// StageDefinition defines metadata for a stage
type StageDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	Optional     []string
}

// Stage is one node of the analysis graph. Run never panics on external failures;
// it reports them through Failure.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *types.RunState) Result
}

// StageRegistry holds all stage definitions
var StageRegistry = map[string]StageDefinition{
	StageInputValidator: {
		Name:         StageInputValidator,
		Category:     CategoryValidation,
		Dependencies: []string{},
		Optional:     []string{},
	},
	StageHandleInvalid: {
		Name:         StageHandleInvalid,
		Category:     CategoryValidation,
		Dependencies: []string{StageInputValidator},
		Optional:     []string{},
	},
	StageMarketResearcher: {
		Name:         StageMarketResearcher,
		Category:     CategoryResearch,
		Dependencies: []string{StageInputValidator},
		Optional:     []string{},
	},
	StageCompetitorAnalyst: {
		Name:         StageCompetitorAnalyst,
		Category:     CategoryResearch,
		Dependencies: []string{StageMarketResearcher},
		Optional:     []string{},
	},
	StageDevilsAdvocate: {
		Name:         StageDevilsAdvocate,
		Category:     CategoryEvaluation,
		Dependencies: []string{StageMarketResearcher, StageCompetitorAnalyst},
		Optional:     []string{},
	},
	StageDebatePanel: {
		Name:         StageDebatePanel,
		Category:     CategoryEvaluation,
		Dependencies: []string{StageMarketResearcher, StageCompetitorAnalyst},
		Optional:     []string{},
	},
	StageApplyPivot: {
		Name:         StageApplyPivot,
		Category:     CategoryEvaluation,
		Dependencies: []string{StageDevilsAdvocate},
		Optional:     []string{},
	},
	StageWriter: {
		Name:         StageWriter,
		Category:     CategoryReporting,
		Dependencies: []string{},
		Optional:     []string{StageMarketResearcher, StageCompetitorAnalyst, StageDevilsAdvocate, StageDebatePanel},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// produced reports whether the state holds the output of the named stage.
func produced(state *types.RunState, stageName string) bool {
	switch stageName {
	case StageInputValidator:
		return state.Validation != nil
	case StageMarketResearcher:
		return state.MarketResearch != nil
	case StageCompetitorAnalyst:
		return state.CompetitorAnalysis != nil
	case StageDevilsAdvocate:
		return state.Evaluation != nil
	case StageDebatePanel:
		return state.Debate != nil
	default:
		return false
	}
}

// ValidateDependencies checks that the state holds the output of every stage the named stage requires
func ValidateDependencies(state *types.RunState, stageName string) error {
	def, ok := StageRegistry[stageName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stageName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !produced(state, dep) {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stageName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// AvailableOptional returns the optional inputs of the named stage already present in the state
func AvailableOptional(state *types.RunState, stageName string) []string {
	var available []string
	for _, opt := range StageRegistry[stageName].Optional {
		if produced(state, opt) {
			available = append(available, opt)
		}
	}
	return available
}
