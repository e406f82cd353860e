package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`8`, 8},
		{`"8"`, 8},
		{`" 7 "`, 7},
		{`11`, 10},
		{`0`, 1},
		{`-4`, 1},
		{`7.9`, 7},
		{`"eight"`, 5},
		{`"8.5"`, 5},
		{`null`, 5},
		{``, 5},
		{`true`, 5},
		{`1e20`, 10},
		{`99999999999999999999`, 10},
		{`-1e20`, 1},
		{`"99999999999999999999"`, 10},
		{`"-99999999999999999999"`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := CoerceScore(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, MinScore)
			assert.LessOrEqual(t, got, MaxScore)
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"6", 6, true},
		{" 12 ", 10, true},
		{"99999999999999999999", 10, true},
		{"-99999999999999999999", 1, true},
		{"6.5", 0, false},
		{"six", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseScore(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		in   *string
		want Verdict
	}{
		{nil, VerdictPivot},
		{strPtr("INVEST"), VerdictInvest},
		{strPtr("approve with caveats"), VerdictInvest},
		{strPtr("Proceed"), VerdictInvest},
		{strPtr("reject"), VerdictReject},
		{strPtr("likely to fail"), VerdictReject},
		{strPtr("no"), VerdictReject},
		{strPtr("pivot"), VerdictPivot},
		{strPtr("hmm, unclear"), VerdictPivot},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.in != nil {
			name = *tt.in
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVerdict(tt.in))
		})
	}
}

func TestNormalizeDebateVerdict(t *testing.T) {
	assert.Equal(t, VerdictConditionalInvest, NormalizeDebateVerdict(nil))
	assert.Equal(t, VerdictInvest, NormalizeDebateVerdict(strPtr("invest")))
	assert.Equal(t, VerdictInvest, NormalizeDebateVerdict(strPtr("Strong buy")))
	assert.Equal(t, VerdictConditionalInvest, NormalizeDebateVerdict(strPtr("conditional_invest")))
	assert.Equal(t, VerdictReject, NormalizeDebateVerdict(strPtr("reject")))
	assert.Equal(t, VerdictConditionalInvest, NormalizeDebateVerdict(strPtr("maybe")))
}

func TestEvaluation_UnmarshalJSON(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var e Evaluation
		require.NoError(t, json.Unmarshal([]byte(`{}`), &e))
		assert.Equal(t, DefaultScore, e.Score)
		assert.Equal(t, VerdictPivot, e.Verdict)
		assert.Equal(t, DefaultReason, e.Reason)
		assert.NotNil(t, e.KeyRisks)
		assert.NotNil(t, e.KeyOpportunities)
	})

	t.Run("coerces string score and verdict", func(t *testing.T) {
		var e Evaluation
		require.NoError(t, json.Unmarshal([]byte(`{
			"score": "8",
			"verdict": "Invest now",
			"reason": "Large market",
			"key_risks": ["regulation"],
			"suggested_pivot": null
		}`), &e))
		assert.Equal(t, 8, e.Score)
		assert.Equal(t, VerdictInvest, e.Verdict)
		assert.Equal(t, "Large market", e.Reason)
		assert.Equal(t, []string{"regulation"}, e.KeyRisks)
		assert.Empty(t, e.SuggestedPivot)
	})

	t.Run("clamps out of range", func(t *testing.T) {
		var e Evaluation
		require.NoError(t, json.Unmarshal([]byte(`{"score": 42}`), &e))
		assert.Equal(t, 10, e.Score)
	})
}

func TestValidationResult_UnmarshalJSON(t *testing.T) {
	var v ValidationResult
	require.NoError(t, json.Unmarshal([]byte(`{}`), &v))
	assert.True(t, v.IsValid)

	require.NoError(t, json.Unmarshal([]byte(`{"is_valid": false, "rejection_reason": "not a business"}`), &v))
	assert.False(t, v.IsValid)
	assert.Equal(t, "not a business", v.RejectionReason)
}

func TestDebateVerdict_Evaluation(t *testing.T) {
	d := &DebateVerdict{
		Score:          4,
		Verdict:        VerdictConditionalInvest,
		FinalIdea:      "narrower idea",
		IdeaWasPivoted: true,
		Synthesis:      "narrow the focus",
		KeyRisks:       []string{"churn"},
	}

	e := d.Evaluation()
	assert.Equal(t, 4, e.Score)
	assert.Equal(t, "narrower idea", e.SuggestedPivot)
	assert.Equal(t, "narrow the focus", e.PivotRationale)
	assert.Equal(t, "narrow the focus", e.Reason)
	assert.NotNil(t, e.KeyOpportunities)

	d.IdeaWasPivoted = false
	e = d.Evaluation()
	assert.Empty(t, e.SuggestedPivot)
	assert.Empty(t, e.PivotRationale)
}

func TestDebateVerdict_UnmarshalJSON(t *testing.T) {
	var d DebateVerdict
	require.NoError(t, json.Unmarshal([]byte(`{
		"score": "11",
		"verdict": "Conditional Invest",
		"final_idea": "Dog walking for seniors",
		"idea_was_pivoted": true,
		"synthesis": "Narrow the market",
		"debate_transcript": [{"speaker": "Bull", "content": "opening"}]
	}`), &d))

	assert.Equal(t, 10, d.Score)
	assert.Equal(t, VerdictConditionalInvest, d.Verdict)
	assert.True(t, d.IdeaWasPivoted)
	assert.Equal(t, "Dog walking for seniors", d.FinalIdea)
	assert.NotNil(t, d.KeyRisks)
	assert.NotNil(t, d.RecommendedNextSteps)
	require.Len(t, d.Transcript, 1)
	assert.Equal(t, SpeakerBull, d.Transcript[0].Speaker)

	var empty DebateVerdict
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Equal(t, DefaultScore, empty.Score)
	assert.Equal(t, VerdictConditionalInvest, empty.Verdict)
	assert.False(t, empty.IdeaWasPivoted)
}

func TestRunRequest_Validation(t *testing.T) {
	validate := validator.New()

	assert.NoError(t, validate.Struct(RunRequest{Idea: "Uber for dog walking"}))
	assert.Error(t, validate.Struct(RunRequest{}))

	req := &RunRequest{Idea: ""}
	assert.Error(t, req.Validate())
}
