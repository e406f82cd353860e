package steps

import (
	"fmt"
	"strings"

	"github.com/jonathan/idea-scout/internal/types"
)

const notAvailable = "N/A"

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

func bulletsOr(items []string, limit int, def string) string {
	if len(items) == 0 {
		return def
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func formatMarketResearch(mr *types.MarketResearch) string {
	if mr == nil {
		return "(No market research available)"
	}
	return fmt.Sprintf(`- Market Size: %s
- Growth Rate: %s
- Market Maturity: %s
- Key Trends: %s
- Target Demographics: %s

Summary: %s`,
		orDefault(mr.MarketSizeEstimate, "Unknown"),
		orDefault(mr.GrowthRate, "Unknown"),
		orDefault(mr.MarketMaturity, "Unknown"),
		joinOr(mr.KeyTrends, "Unknown"),
		orDefault(mr.TargetDemographics, "Unknown"),
		orDefault(mr.Summary, notAvailable),
	)
}

func formatCompetitorAnalysis(ca *types.CompetitorAnalysis) string {
	if ca == nil {
		return "(No competitor analysis available)"
	}
	var competitors strings.Builder
	for _, c := range ca.Competitors {
		fmt.Fprintf(&competitors, "\n  - **%s**: %s\n    Features: %s\n    Weaknesses: %s",
			orDefault(c.Name, "Unknown"),
			orDefault(c.Description, notAvailable),
			strings.Join(firstN(c.KeyFeatures, 3), ", "),
			strings.Join(firstN(c.Weaknesses, 2), ", "),
		)
	}
	return fmt.Sprintf(`- Market Saturation: %s
- Barriers to Entry: %s
- Differentiation Opportunities: %s

Competitors:%s

Summary: %s`,
		orDefault(ca.MarketSaturation, "Unknown"),
		strings.Join(ca.BarriersToEntry, ", "),
		strings.Join(ca.DifferentiationOpportunities, ", "),
		competitors.String(),
		orDefault(ca.Summary, notAvailable),
	)
}

func formatPivotContext(history []types.PivotRecord) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n**Previous Pivot History:**\n")
	for _, p := range history {
		fmt.Fprintf(&b, "- Pivot #%d: '%s' → '%s' (Score: %d, Reason: %s)\n",
			p.AttemptNum, p.OriginalIdea, p.PivotedIdea, p.Score, p.Reason)
	}
	return b.String()
}

// researchContextData fills the shared briefing every debate turn starts from.
func researchContextData(idea string, mr *types.MarketResearch, ca *types.CompetitorAnalysis) map[string]string {
	if mr == nil {
		mr = &types.MarketResearch{}
	}
	if ca == nil {
		ca = &types.CompetitorAnalysis{}
	}

	var competitors []string
	for _, c := range firstN(ca.Competitors, 5) {
		competitors = append(competitors, fmt.Sprintf("%s: %s", orDefault(c.Name, "Unknown"), truncate(c.Description, 100)))
	}

	return map[string]string{
		"Idea":            idea,
		"MarketSize":      orDefault(mr.MarketSizeEstimate, "Unknown"),
		"GrowthRate":      orDefault(mr.GrowthRate, "Unknown"),
		"MarketSummary":   orDefault(mr.Summary, "No market research available."),
		"Saturation":      orDefault(ca.MarketSaturation, "unknown"),
		"Competitors":     bulletsOr(competitors, 0, "- No specific competitors identified"),
		"Differentiation": bulletsOr(ca.DifferentiationOpportunities, 5, "- None identified"),
	}
}
