package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Verdict is the categorical recommendation accompanying a score.
type Verdict string

// Verdict values. Devil's-advocate evaluations use invest/pivot/reject; the debate
// panel uses invest/conditional_invest/reject.
const (
	VerdictInvest            Verdict = "invest"
	VerdictPivot             Verdict = "pivot"
	VerdictReject            Verdict = "reject"
	VerdictConditionalInvest Verdict = "conditional_invest"
)

const (
	// MinScore and MaxScore bound every viability score.
	MinScore = 1
	MaxScore = 10
	// DefaultScore is used when a score is missing or unparseable.
	DefaultScore = 5
	// DefaultReason is used when an evaluation omits its reasoning.
	DefaultReason = "Analysis incomplete"
)

// ValidationResult is the input validator's decision.
type ValidationResult struct {
	IsValid          bool   `json:"is_valid"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
	SuggestedReframe string `json:"suggested_reframe,omitempty"`
}

// UnmarshalJSON treats a missing is_valid as valid.
func (v *ValidationResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		IsValid          *bool   `json:"is_valid"`
		RejectionReason  *string `json:"rejection_reason"`
		SuggestedReframe *string `json:"suggested_reframe"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.IsValid = raw.IsValid == nil || *raw.IsValid
	v.RejectionReason = deref(raw.RejectionReason)
	v.SuggestedReframe = deref(raw.SuggestedReframe)
	return nil
}

// MarketResearch is the market researcher's structured output.
type MarketResearch struct {
	MarketSizeEstimate string   `json:"market_size_estimate"`
	GrowthRate         string   `json:"growth_rate"`
	KeyTrends          []string `json:"key_trends"`
	TargetDemographics string   `json:"target_demographics"`
	MarketMaturity     string   `json:"market_maturity"`
	DataSources        []string `json:"data_sources"`
	Summary            string   `json:"summary"`
}

// CompetitorProfile describes one competitor.
type CompetitorProfile struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Description    string   `json:"description"`
	KeyFeatures    []string `json:"key_features"`
	PricingModel   string   `json:"pricing_model"`
	TargetAudience string   `json:"target_audience"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
}

// CompetitorAnalysis is the competitor analyst's structured output.
type CompetitorAnalysis struct {
	Competitors                  []CompetitorProfile `json:"competitors"`
	MarketSaturation             string              `json:"market_saturation"`
	DifferentiationOpportunities []string            `json:"differentiation_opportunities"`
	BarriersToEntry              []string            `json:"barriers_to_entry"`
	Summary                      string              `json:"summary"`
}

// Evaluation is the strategy-neutral evaluation shape read by the router and writer.
type Evaluation struct {
	Score            int      `json:"score"`
	Verdict          Verdict  `json:"verdict"`
	Reason           string   `json:"reason"`
	KeyRisks         []string `json:"key_risks"`
	KeyOpportunities []string `json:"key_opportunities"`
	SuggestedPivot   string   `json:"suggested_pivot,omitempty"`
	PivotRationale   string   `json:"pivot_rationale,omitempty"`
}

// UnmarshalJSON coerces the score into [1,10] and normalizes the verdict.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Score            json.RawMessage `json:"score"`
		Verdict          json.RawMessage `json:"verdict"`
		Reason           *string         `json:"reason"`
		KeyRisks         []string        `json:"key_risks"`
		KeyOpportunities []string        `json:"key_opportunities"`
		SuggestedPivot   *string         `json:"suggested_pivot"`
		PivotRationale   *string         `json:"pivot_rationale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Score = CoerceScore(raw.Score)
	e.Verdict = NormalizeVerdict(rawString(raw.Verdict))
	e.Reason = DefaultReason
	if raw.Reason != nil && *raw.Reason != "" {
		e.Reason = *raw.Reason
	}
	e.KeyRisks = nonNil(raw.KeyRisks)
	e.KeyOpportunities = nonNil(raw.KeyOpportunities)
	e.SuggestedPivot = deref(raw.SuggestedPivot)
	e.PivotRationale = deref(raw.PivotRationale)
	return nil
}

// Speaker is one of the three debate personas.
type Speaker string

// Debate personas.
const (
	SpeakerBull        Speaker = "Bull"
	SpeakerBear        Speaker = "Bear"
	SpeakerSynthesizer Speaker = "Synthesizer"
)

// DebateTurn is one message in the debate transcript.
type DebateTurn struct {
	Speaker   Speaker   `json:"speaker"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DebateVerdict is the synthesizer's decision plus the full transcript.
type DebateVerdict struct {
	Score                int          `json:"score"`
	Verdict              Verdict      `json:"verdict"`
	FinalIdea            string       `json:"final_idea"`
	IdeaWasPivoted       bool         `json:"idea_was_pivoted"`
	BullCase             string       `json:"bull_case"`
	BearCase             string       `json:"bear_case"`
	Synthesis            string       `json:"synthesis"`
	KeyRisks             []string     `json:"key_risks"`
	KeyOpportunities     []string     `json:"key_opportunities"`
	RecommendedNextSteps []string     `json:"recommended_next_steps"`
	Transcript           []DebateTurn `json:"debate_transcript"`
}

// UnmarshalJSON coerces the score, normalizes the verdict and fills list defaults.
func (d *DebateVerdict) UnmarshalJSON(data []byte) error {
	var raw struct {
		Score                json.RawMessage `json:"score"`
		Verdict              json.RawMessage `json:"verdict"`
		FinalIdea            *string         `json:"final_idea"`
		IdeaWasPivoted       *bool           `json:"idea_was_pivoted"`
		BullCase             *string         `json:"bull_case"`
		BearCase             *string         `json:"bear_case"`
		Synthesis            *string         `json:"synthesis"`
		KeyRisks             []string        `json:"key_risks"`
		KeyOpportunities     []string        `json:"key_opportunities"`
		RecommendedNextSteps []string        `json:"recommended_next_steps"`
		Transcript           []DebateTurn    `json:"debate_transcript"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Score = CoerceScore(raw.Score)
	d.Verdict = NormalizeDebateVerdict(rawString(raw.Verdict))
	d.FinalIdea = deref(raw.FinalIdea)
	d.IdeaWasPivoted = raw.IdeaWasPivoted != nil && *raw.IdeaWasPivoted
	d.BullCase = deref(raw.BullCase)
	d.BearCase = deref(raw.BearCase)
	d.Synthesis = deref(raw.Synthesis)
	d.KeyRisks = nonNil(raw.KeyRisks)
	d.KeyOpportunities = nonNil(raw.KeyOpportunities)
	d.RecommendedNextSteps = nonNil(raw.RecommendedNextSteps)
	d.Transcript = raw.Transcript
	return nil
}

// Evaluation projects the verdict onto the shared evaluation shape.
func (d *DebateVerdict) Evaluation() *Evaluation {
	e := &Evaluation{
		Score:            d.Score,
		Verdict:          d.Verdict,
		Reason:           d.Synthesis,
		KeyRisks:         nonNil(d.KeyRisks),
		KeyOpportunities: nonNil(d.KeyOpportunities),
	}
	if d.IdeaWasPivoted {
		e.SuggestedPivot = d.FinalIdea
		e.PivotRationale = d.Synthesis
	}
	return e
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// CoerceScore converts a raw JSON score (number, numeric string, null or absent) into
// a clamped score. Anything unparseable becomes DefaultScore.
func CoerceScore(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DefaultScore
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return DefaultScore
		}
		// Clamp before converting; int(f) is undefined past the int range.
		return int(math.Max(MinScore, math.Min(MaxScore, f)))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, ok := ParseScore(s); ok {
			return n
		}
	}
	return DefaultScore
}

// ParseScore reads an integer score from text and clamps it. Integers too large
// for int clamp to the nearer bound; anything else is not a score.
func ParseScore(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	// On ErrRange, Atoi returns the int bound with the right sign.
	return ClampScore(n), true
}

// NormalizeVerdict maps free-form evaluator text onto invest, pivot or reject.
// Matching is by substring, in that priority order; anything else is pivot.
func NormalizeVerdict(v *string) Verdict {
	if v == nil {
		return VerdictPivot
	}
	lower := strings.ToLower(strings.TrimSpace(*v))
	switch {
	case containsAny(lower, "invest", "approve", "proceed"):
		return VerdictInvest
	case containsAny(lower, "reject", "fail", "no"):
		return VerdictReject
	default:
		return VerdictPivot
	}
}

// NormalizeDebateVerdict maps synthesizer text onto invest, conditional_invest or reject.
func NormalizeDebateVerdict(v *string) Verdict {
	if v == nil {
		return VerdictConditionalInvest
	}
	lower := strings.ToLower(strings.TrimSpace(*v))
	switch {
	case strings.Contains(lower, "strong"),
		strings.Contains(lower, "invest") && !strings.Contains(lower, "conditional"):
		return VerdictInvest
	case containsAny(lower, "reject", "fail", "no"):
		return VerdictReject
	default:
		return VerdictConditionalInvest
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// rawString decodes a JSON scalar into its text form; null or absent yields nil.
func rawString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(raw)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
