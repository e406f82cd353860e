package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/idea-scout/internal/prompts"
	"github.com/jonathan/idea-scout/internal/types"
)

// TimestampPlaceholder is left in report headers for the runner to fill.
const TimestampPlaceholder = "{timestamp}"

// Writer produces the final report. The template depends only on whether the
// score clears the threshold, never on the route that led here.
type Writer struct {
	deps *Deps
}

// NewWriter creates the report stage.
func NewWriter(deps *Deps) *Writer {
	return &Writer{deps: deps}
}

func (s *Writer) Name() string { return StageWriter }

// ReportTypeFor picks the template for a score.
func ReportTypeFor(score, threshold int) types.ReportType {
	if score > threshold {
		return types.ReportInvestmentMemo
	}
	return types.ReportMarketReality
}

func (s *Writer) Run(ctx context.Context, state *types.RunState) Result {
	reportType := ReportTypeFor(state.Score(), s.deps.Settings.Threshold)

	var (
		system, prompt, header, narrative string
		err                               error
	)
	if reportType == types.ReportInvestmentMemo {
		narrative = EvolutionNarrative(state)
		system, prompt, err = s.memoPrompt(state, narrative)
		header = fmt.Sprintf("# 🟢 Investment Memo\n\n**Idea:** %s\n**Score:** %s/10\n**Generated:** %s\n\n---\n\n",
			state.CurrentIdea, scoreText(state), TimestampPlaceholder)
	} else {
		narrative = PivotJourney(state.PivotHistory)
		system, prompt, err = s.realityPrompt(state, narrative)
		header = fmt.Sprintf("# 🔴 Market Reality Report\n\n**Original Idea:** %s\n**Final Score:** %s/10\n**Pivots Attempted:** %d\n**Generated:** %s\n\n---\n\n",
			state.OriginalIdea, scoreText(state), len(state.PivotHistory), TimestampPlaceholder)
	}
	if err != nil {
		return Failure(err)
	}

	body, err := s.deps.writer().Generate(ctx, prompt, system)
	if err != nil {
		return Failure(fmt.Errorf("write %s: %w", reportType, err))
	}

	report := header + strings.TrimSpace(body) + "\n"
	if narrative != "" {
		report += "\n" + narrative
	}

	return Success(types.StateUpdate{
		Status:      types.StatusCompleted,
		FinalReport: &report,
		ReportType:  &reportType,
	})
}

func (s *Writer) memoPrompt(state *types.RunState, narrative string) (string, string, error) {
	mr, ca, eval := analysis(state)

	var names []string
	for _, c := range firstN(ca.Competitors, 5) {
		names = append(names, c.Name)
	}

	system, err := prompts.Get("writer.json", "investment-memo-system")
	if err != nil {
		return "", "", err
	}
	prompt, err := prompts.Render("writer.json", "investment-memo", map[string]string{
		"Idea":               state.CurrentIdea,
		"Score":              scoreText(state),
		"Verdict":            orDefault(string(eval.Verdict), notAvailable),
		"MarketSize":         orDefault(mr.MarketSizeEstimate, notAvailable),
		"GrowthRate":         orDefault(mr.GrowthRate, notAvailable),
		"MarketMaturity":     orDefault(mr.MarketMaturity, notAvailable),
		"KeyTrends":          strings.Join(mr.KeyTrends, ", "),
		"TargetDemographics": orDefault(mr.TargetDemographics, notAvailable),
		"Saturation":         orDefault(ca.MarketSaturation, notAvailable),
		"CompetitorNames":    strings.Join(names, ", "),
		"Differentiation":    strings.Join(ca.DifferentiationOpportunities, ", "),
		"Barriers":           strings.Join(ca.BarriersToEntry, ", "),
		"KeyRisks":           strings.Join(eval.KeyRisks, ", "),
		"KeyOpportunities":   strings.Join(eval.KeyOpportunities, ", "),
		"Reason":             orDefault(eval.Reason, notAvailable),
		"PivotNarrative":     narrative,
	})
	return system, prompt, err
}

func (s *Writer) realityPrompt(state *types.RunState, narrative string) (string, string, error) {
	mr, ca, eval := analysis(state)

	system, err := prompts.Get("writer.json", "market-reality-system")
	if err != nil {
		return "", "", err
	}
	prompt, err := prompts.Render("writer.json", "market-reality", map[string]string{
		"OriginalIdea":      state.OriginalIdea,
		"Idea":              state.CurrentIdea,
		"Score":             scoreText(state),
		"PivotCount":        strconv.Itoa(len(state.PivotHistory)),
		"MarketSize":        orDefault(mr.MarketSizeEstimate, notAvailable),
		"GrowthRate":        orDefault(mr.GrowthRate, notAvailable),
		"MarketMaturity":    orDefault(mr.MarketMaturity, notAvailable),
		"MarketSummary":     orDefault(mr.Summary, notAvailable),
		"Saturation":        orDefault(ca.MarketSaturation, notAvailable),
		"CompetitorCount":   strconv.Itoa(len(ca.Competitors)),
		"Barriers":          strings.Join(ca.BarriersToEntry, ", "),
		"CompetitorSummary": orDefault(ca.Summary, notAvailable),
		"KeyRisks":          strings.Join(eval.KeyRisks, ", "),
		"Reason":            orDefault(eval.Reason, notAvailable),
		"PivotNarrative":    narrative,
	})
	return system, prompt, err
}

// analysis returns the stage outputs, substituting empty records for missing ones.
func analysis(state *types.RunState) (*types.MarketResearch, *types.CompetitorAnalysis, *types.Evaluation) {
	mr, ca, eval := state.MarketResearch, state.CompetitorAnalysis, state.Evaluation
	if mr == nil {
		mr = &types.MarketResearch{}
	}
	if ca == nil {
		ca = &types.CompetitorAnalysis{}
	}
	if eval == nil {
		eval = &types.Evaluation{}
	}
	return mr, ca, eval
}

func scoreText(state *types.RunState) string {
	if state.Evaluation == nil {
		return notAvailable
	}
	return strconv.Itoa(state.Evaluation.Score)
}

// EvolutionNarrative describes how a passing idea got from the original to its final form.
// It is empty when the idea never changed.
func EvolutionNarrative(state *types.RunState) string {
	if len(state.PivotHistory) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Evolution of the Idea\n\n")
	fmt.Fprintf(&b, "The original idea was: **%s**\n\n", state.OriginalIdea)
	b.WriteString("Through iterative analysis, the idea evolved:\n\n")
	for _, p := range state.PivotHistory {
		fmt.Fprintf(&b, "- **Pivot #%d**: Shifted from '%s' to '%s'\n", p.AttemptNum, p.OriginalIdea, p.PivotedIdea)
		fmt.Fprintf(&b, "  - Reason: %s\n", p.Reason)
	}
	fmt.Fprintf(&b, "\nThe final validated idea is: **%s**\n", state.CurrentIdea)
	return b.String()
}

// PivotJourney enumerates every pivot that failed to reach a passing score.
// It is empty when no pivot was attempted.
func PivotJourney(history []types.PivotRecord) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## The Pivot Journey\n\n")
	b.WriteString("We attempted several pivots to find a viable angle:\n\n")
	for _, p := range history {
		fmt.Fprintf(&b, "### Pivot #%d: %s\n", p.AttemptNum, p.PivotedIdea)
		fmt.Fprintf(&b, "- **Previous idea:** %s\n", p.OriginalIdea)
		fmt.Fprintf(&b, "- **Score:** %d/10\n", p.Score)
		fmt.Fprintf(&b, "- **Why it didn't pass:** %s\n\n", p.Reason)
	}
	return b.String()
}
