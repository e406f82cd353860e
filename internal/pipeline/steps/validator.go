package steps

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/idea-scout/internal/prompts"
	"github.com/jonathan/idea-scout/internal/types"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

// User-facing rejection reasons.
const (
	ReasonTooShort  = "Input is too short. Please describe a startup idea."
	ReasonGibberish = "Input appears to be gibberish. Please enter a valid startup idea."
	ReasonNotAnIdea = "Input does not look like a startup or business idea."
)

const minIdeaLength = 3

var businessKeywords = []string{
	"app", "platform", "service", "tool", "software", "saas",
	"marketplace", "ai", "automated", "solution", "startup",
	"business", "company", "product", "subscription", "b2b", "b2c",
	"for", "that", "which", "helps", "enables", "allows",
	"uber", "airbnb", "like", "similar", "alternative",
}

// InputValidator rejects obvious garbage locally and escalates ambiguous input to
// the fast reasoning tier.
type InputValidator struct {
	deps *Deps
}

// NewInputValidator creates the validation stage.
func NewInputValidator(deps *Deps) *InputValidator {
	return &InputValidator{deps: deps}
}

func (s *InputValidator) Name() string { return StageInputValidator }

func (s *InputValidator) Run(ctx context.Context, state *types.RunState) Result {
	idea := strings.TrimSpace(state.CurrentIdea)

	if utf8.RuneCountInString(idea) < minIdeaLength {
		return rejected(ReasonTooShort)
	}
	if IsGibberish(idea) {
		return rejected(ReasonGibberish)
	}
	if len(strings.Fields(idea)) >= 5 && LooksLikeBusinessIdea(idea) {
		return Success(types.StateUpdate{
			Status:     types.StatusValidated,
			Validation: &types.ValidationResult{IsValid: true},
		})
	}

	system, err := prompts.Get("validation.json", "system")
	if err != nil {
		return Failure(err)
	}
	prompt, err := prompts.Render("validation.json", "classify-idea", map[string]string{"Idea": idea})
	if err != nil {
		return Failure(err)
	}

	var result types.ValidationResult
	if err := s.deps.fast().GenerateStructured(ctx, prompt, system, schemafiles.Validation, &result); err != nil {
		return Failure(fmt.Errorf("validate idea: %w", err))
	}
	if !result.IsValid {
		if strings.TrimSpace(result.RejectionReason) == "" {
			result.RejectionReason = ReasonNotAnIdea
		}
		return Success(types.StateUpdate{
			Status:     types.StatusInvalidInput,
			Error:      result.RejectionReason,
			Validation: &result,
		})
	}
	return Success(types.StateUpdate{Status: types.StatusValidated, Validation: &result})
}

func rejected(reason string) Result {
	return Success(types.StateUpdate{
		Status:     types.StatusInvalidInput,
		Error:      reason,
		Validation: &types.ValidationResult{IsValid: false, RejectionReason: reason},
	})
}

// IsGibberish applies the cheap local checks on the lowercased, whitespace-free text:
// two or fewer distinct characters, no vowels, mostly non-letters, or one short unit
// typed over and over.
func IsGibberish(text string) bool {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	runes := []rune(clean)
	n := len(runes)
	if n == 0 {
		return true
	}

	distinct := make(map[rune]struct{}, n)
	letters := 0
	hasVowel := false
	for _, r := range runes {
		distinct[r] = struct{}{}
		if unicode.IsLetter(r) {
			letters++
		}
		if strings.ContainsRune("aeiou", r) {
			hasVowel = true
		}
	}

	switch {
	case len(distinct) <= 2 && n > 3:
		return true
	case n > 5 && !hasVowel:
		return true
	case n > 3 && float64(letters)/float64(n) < 0.5:
		return true
	}
	return len(strings.Fields(text)) == 1 && isRepeatedUnit(runes)
}

// isRepeatedUnit reports whether s is a unit of at least three characters repeated
// two or more times, e.g. "asdfasdf".
func isRepeatedUnit(s []rune) bool {
	n := len(s)
	for size := 3; size <= n/2; size++ {
		if n%size != 0 {
			continue
		}
		repeated := true
		for i := size; i < n; i++ {
			if s[i] != s[i-size] {
				repeated = false
				break
			}
		}
		if repeated {
			return true
		}
	}
	return false
}

// LooksLikeBusinessIdea reports whether the text contains any business phrasing keyword.
func LooksLikeBusinessIdea(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range businessKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// HandleInvalid ends a run whose input was rejected.
type HandleInvalid struct{}

// NewHandleInvalid creates the invalid-input terminal stage.
func NewHandleInvalid() *HandleInvalid {
	return &HandleInvalid{}
}

func (s *HandleInvalid) Name() string { return StageHandleInvalid }

func (s *HandleInvalid) Run(_ context.Context, state *types.RunState) Result {
	reason := ReasonNotAnIdea
	if state.Validation != nil && state.Validation.RejectionReason != "" {
		reason = state.Validation.RejectionReason
	}
	return Success(types.StateUpdate{Status: types.StatusInvalidInput, Error: reason})
}
