// Package schemas holds the JSON Schemas that structured reasoning-service output must satisfy.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// Schema names, matching file names without the .schema.json suffix.
const (
	Validation         = "validation"
	MarketResearch     = "market_research"
	CompetitorAnalysis = "competitor_analysis"
	Evaluation         = "evaluation"
	DebateVerdict      = "debate_verdict"
)

// Names lists every embedded schema.
func Names() []string {
	return []string{Validation, MarketResearch, CompetitorAnalysis, Evaluation, DebateVerdict}
}
