package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

const businessIdea = "A subscription app that helps busy owners book dog walkers"

// fakeReasoner passes every idea on the first evaluation.
type fakeReasoner struct {
	score int
}

func (f fakeReasoner) GenerateStructured(_ context.Context, _, _, schema string, out any) error {
	responses := map[string]string{
		schemafiles.Validation:         `{"is_valid": true}`,
		schemafiles.MarketResearch:     `{"market_size_estimate": "$2B", "summary": "growing"}`,
		schemafiles.CompetitorAnalysis: `{"competitors": [{"name": "Rover"}], "summary": "crowded"}`,
		schemafiles.Evaluation: fmt.Sprintf(
			`{"score": %d, "verdict": "pivot", "reason": "thin margins", "suggested_pivot": "Dog walking for seniors"}`, f.score),
	}
	resp, ok := responses[schema]
	if !ok {
		return fmt.Errorf("no response for %s", schema)
	}
	return json.Unmarshal([]byte(resp), out)
}

func (fakeReasoner) Generate(context.Context, string, string) (string, error) {
	return "## Executive Summary\nThe report.", nil
}

type fakeSearcher struct{}

func (fakeSearcher) Search(context.Context, string, int) ([]types.SearchResult, error) {
	return []types.SearchResult{{Title: "Rover", URL: "https://www.rover.com/", Snippet: "Dog walkers near you"}}, nil
}

func testEnv(score int) (runEnv, *db.MemoryStore) {
	logger, _ := test.NewNullLogger()
	store := db.NewMemoryStore()
	settings := steps.DefaultSettings()
	settings.MaxPivotAttempts = 1
	return runEnv{
		deps: &steps.Deps{
			Reasoner: fakeReasoner{score: score},
			Searcher: fakeSearcher{},
			Settings: settings,
			Logger:   logger,
		},
		store:  store,
		logger: logger,
	}, store
}
