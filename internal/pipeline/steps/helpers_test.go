package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/jonathan/idea-scout/internal/types"
)

// MockReasoner answers structured calls from canned JSON keyed by schema and free
// text calls through GenerateFunc.
type MockReasoner struct {
	mu sync.Mutex

	GenerateFunc  func(ctx context.Context, prompt, system string) (string, error)
	Structured    map[string]string
	StructuredErr error

	Prompts []string
	Systems []string
	Schemas []string
}

func (m *MockReasoner) Generate(ctx context.Context, prompt, system string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Systems = append(m.Systems, system)
	m.mu.Unlock()
	if m.GenerateFunc == nil {
		return "", fmt.Errorf("unexpected Generate call")
	}
	return m.GenerateFunc(ctx, prompt, system)
}

func (m *MockReasoner) GenerateStructured(_ context.Context, prompt, system, schema string, out any) error {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Systems = append(m.Systems, system)
	m.Schemas = append(m.Schemas, schema)
	m.mu.Unlock()
	if m.StructuredErr != nil {
		return m.StructuredErr
	}
	raw, ok := m.Structured[schema]
	if !ok {
		return fmt.Errorf("no canned response for %s", schema)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (m *MockReasoner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results []types.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]types.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeScraper struct {
	urls  []string
	pages func(urls []string) []types.ScrapedPage
}

func (f *fakeScraper) ScrapeMany(_ context.Context, urls []string) []types.ScrapedPage {
	f.urls = append(f.urls, urls...)
	if f.pages == nil {
		out := make([]types.ScrapedPage, len(urls))
		for i, u := range urls {
			out[i] = types.ScrapedPage{URL: u, Success: false, Error: "HTTP 503"}
		}
		return out
	}
	return f.pages(urls)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testDeps(r *MockReasoner) *Deps {
	logger, _ := test.NewNullLogger()
	return &Deps{
		Reasoner: r,
		Searcher: &fakeSearcher{results: sampleResults()},
		Settings: DefaultSettings(),
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	}
}

func sampleResults() []types.SearchResult {
	return []types.SearchResult{
		{Title: "Rover", URL: "https://www.rover.com/", Snippet: "Book trusted dog walkers"},
		{Title: "Wag!", URL: "https://wagwalking.com/", Snippet: "On-demand dog walking"},
		{Title: "Dog walking - Wikipedia", URL: "https://en.wikipedia.org/wiki/Dog_walking", Snippet: "Dog walking is"},
	}
}

const (
	marketJSON = `{
		"market_size_estimate": "$1.1B US dog walking",
		"growth_rate": "6% CAGR",
		"key_trends": ["pet humanization", "app booking"],
		"target_demographics": "urban millennials",
		"market_maturity": "growing",
		"data_sources": ["IBISWorld"],
		"summary": "Steady growth"
	}`
	competitorJSON = `{
		"competitors": [
			{"name": "Rover", "description": "Marketplace for pet care", "key_features": ["booking", "insurance"], "weaknesses": ["fees"]},
			{"name": "Wag!", "description": "On-demand walking"}
		],
		"market_saturation": "high",
		"differentiation_opportunities": ["senior dogs"],
		"barriers_to_entry": ["trust", "insurance"],
		"summary": "Crowded"
	}`
)

func analysedState(idea string) *types.RunState {
	s := types.NewRunState("job-1", "session-1", idea)
	s.Validation = &types.ValidationResult{IsValid: true}
	s.MarketResearch = &types.MarketResearch{
		MarketSizeEstimate: "$1.1B", GrowthRate: "6%", MarketMaturity: "growing",
		KeyTrends: []string{"pet humanization"}, Summary: "Steady growth",
	}
	s.CompetitorAnalysis = &types.CompetitorAnalysis{
		Competitors:                  []types.CompetitorProfile{{Name: "Rover", Description: strings.Repeat("r", 150)}},
		MarketSaturation:             "high",
		DifferentiationOpportunities: []string{"senior dogs"},
		BarriersToEntry:              []string{"trust"},
		Summary:                      "Crowded",
	}
	return s
}
