package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/idea-scout/internal/llm"
	"github.com/jonathan/idea-scout/internal/prompts"
	"github.com/jonathan/idea-scout/internal/types"
)

const (
	// ParseFailedNote replaces the bull and bear summaries when the verdict had to be scraped from text.
	ParseFailedNote = "(Parsing failed - see transcript)"

	excerptChars            = 500
	pivotReasonChars        = 200
	debatePivotReasonFormat = "Debate consensus: %s..."
)

var fallbackScorePattern = regexp.MustCompile(`(?i)score[:\s]*(\d+)`)

// DebatePanel runs the scripted five-turn Bull/Bear/Synthesizer exchange. Only the
// synthesizer renders a verdict; it may fold one pivot into its answer.
type DebatePanel struct {
	deps *Deps
}

// NewDebatePanel creates the debate stage.
func NewDebatePanel(deps *Deps) *DebatePanel {
	return &DebatePanel{deps: deps}
}

func (s *DebatePanel) Name() string { return StageDebatePanel }

type debateTurn struct {
	speaker types.Speaker
	system  string
	prompt  string
	data    map[string]string
}

func (s *DebatePanel) Run(ctx context.Context, state *types.RunState) Result {
	idea := state.CurrentIdea
	threshold := strconv.Itoa(s.deps.Settings.Threshold)

	briefing, err := prompts.Render("debate.json", "research-context",
		researchContextData(idea, state.MarketResearch, state.CompetitorAnalysis))
	if err != nil {
		return Failure(err)
	}

	var transcript []types.DebateTurn
	say := func(turn debateTurn) (string, error) {
		system, err := prompts.Render("debate.json", turn.system, map[string]string{
			"Threshold":        threshold,
			"ThresholdPlusOne": strconv.Itoa(s.deps.Settings.Threshold + 1),
		})
		if err != nil {
			return "", err
		}
		turn.data["Context"] = briefing
		prompt, err := prompts.Render("debate.json", turn.prompt, turn.data)
		if err != nil {
			return "", err
		}
		reply, err := s.deps.Reasoner.Generate(ctx, prompt, system)
		if err != nil {
			return "", fmt.Errorf("%s turn %d: %w", turn.speaker, len(transcript)+1, err)
		}
		transcript = append(transcript, types.DebateTurn{Speaker: turn.speaker, Content: reply, Timestamp: s.deps.now()})
		return reply, nil
	}

	bullOpening, err := say(debateTurn{types.SpeakerBull, "bull-system", "bull-opening", map[string]string{}})
	if err != nil {
		return Failure(err)
	}
	bearChallenge, err := say(debateTurn{types.SpeakerBear, "bear-system", "bear-challenge", map[string]string{
		"BullOpening": bullOpening,
	}})
	if err != nil {
		return Failure(err)
	}
	bullRebuttal, err := say(debateTurn{types.SpeakerBull, "bull-system", "bull-rebuttal", map[string]string{
		"BullOpening":   bullOpening,
		"BearChallenge": bearChallenge,
	}})
	if err != nil {
		return Failure(err)
	}
	bearFinal, err := say(debateTurn{types.SpeakerBear, "bear-system", "bear-final", map[string]string{
		"BullOpeningExcerpt":   truncate(bullOpening, excerptChars),
		"BearChallengeExcerpt": truncate(bearChallenge, excerptChars),
		"BullRebuttal":         bullRebuttal,
	}})
	if err != nil {
		return Failure(err)
	}
	synthesis, err := say(debateTurn{types.SpeakerSynthesizer, "synthesizer-system", "synthesize", map[string]string{
		"BullOpening":   bullOpening,
		"BearChallenge": bearChallenge,
		"BullRebuttal":  bullRebuttal,
		"BearFinal":     bearFinal,
		"Threshold":     threshold,
	}})
	if err != nil {
		return Failure(err)
	}

	verdict, parsed := ParseSynthesis(synthesis, idea)
	verdict.Transcript = transcript
	if !parsed {
		s.deps.logger().WithField("component", "debate_panel").Warn("synthesizer verdict was not JSON, using text fallback")
	}

	update := types.StateUpdate{
		Status:     types.StatusDebating,
		Debate:     &verdict,
		Evaluation: verdict.Evaluation(),
	}
	if verdict.IdeaWasPivoted && strings.TrimSpace(verdict.FinalIdea) != "" {
		pivoted := verdict.FinalIdea
		attempt := state.PivotAttempts + 1
		update.CurrentIdea = &pivoted
		update.PivotAttempts = &attempt
		update.PivotHistory = []types.PivotRecord{{
			AttemptNum:   attempt,
			OriginalIdea: idea,
			PivotedIdea:  pivoted,
			Reason:       fmt.Sprintf(debatePivotReasonFormat, truncate(verdict.Synthesis, pivotReasonChars)),
			Score:        verdict.Score,
			Timestamp:    s.deps.now(),
		}}
	}
	return Success(update)
}

// ParseSynthesis turns the synthesizer's reply into a verdict. It strips code
// fences, extracts the outermost JSON object and decodes it; when that fails it
// scans the raw text for a score and a verdict keyword. The second return value
// reports whether structured decoding succeeded.
func ParseSynthesis(response, idea string) (types.DebateVerdict, bool) {
	if raw, err := llm.ExtractJSONObject(response); err == nil {
		var v types.DebateVerdict
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			if strings.TrimSpace(v.FinalIdea) == "" {
				v.FinalIdea = idea
			}
			return v, true
		}
	}
	return fallbackVerdict(response, idea), false
}

func fallbackVerdict(response, idea string) types.DebateVerdict {
	text := strings.TrimSpace(response)

	score := types.DefaultScore
	if m := fallbackScorePattern.FindStringSubmatch(text); m != nil {
		if n, ok := types.ParseScore(m[1]); ok {
			score = n
		}
	}

	lower := strings.ToLower(text)
	verdict := types.VerdictConditionalInvest
	switch {
	case strings.Contains(lower, "reject"):
		verdict = types.VerdictReject
	case strings.Contains(lower, "invest") && !strings.Contains(lower, "conditional"):
		verdict = types.VerdictInvest
	}

	return types.DebateVerdict{
		Score:                score,
		Verdict:              verdict,
		FinalIdea:            idea,
		BullCase:             ParseFailedNote,
		BearCase:             ParseFailedNote,
		Synthesis:            truncate(text, excerptChars),
		KeyRisks:             []string{},
		KeyOpportunities:     []string{},
		RecommendedNextSteps: []string{},
	}
}
