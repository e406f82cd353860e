package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

// fakeReasoner serves structured calls from per-schema response queues (the last
// entry repeats) and free text calls by inspecting the system instruction.
type fakeReasoner struct {
	mu         sync.Mutex
	structured map[string][]string
	calls      map[string]int
	synthesis  string
	failSchema string
}

func newFakeReasoner() *fakeReasoner {
	return &fakeReasoner{
		structured: map[string][]string{
			schemafiles.Validation:         {`{"is_valid": true}`},
			schemafiles.MarketResearch:     {`{"market_size_estimate": "$2B", "growth_rate": "8%", "market_maturity": "growing", "summary": "ok"}`},
			schemafiles.CompetitorAnalysis: {`{"competitors": [{"name": "Rover"}], "market_saturation": "medium", "summary": "ok"}`},
			schemafiles.Evaluation:         {`{"score": 8, "verdict": "invest", "reason": "strong"}`},
		},
		calls:     map[string]int{},
		synthesis: `{"score": 8, "verdict": "invest", "synthesis": "go"}`,
	}
}

func (f *fakeReasoner) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeReasoner) GenerateStructured(_ context.Context, _, _, schema string, out any) error {
	f.mu.Lock()
	n := f.calls[schema]
	f.calls[schema]++
	queue := f.structured[schema]
	f.mu.Unlock()

	if schema == f.failSchema {
		return fmt.Errorf("%s: retries exhausted", schema)
	}
	if len(queue) == 0 {
		return fmt.Errorf("no response for %s", schema)
	}
	return json.Unmarshal([]byte(queue[min(n, len(queue)-1)]), out)
}

func (f *fakeReasoner) Generate(_ context.Context, _, system string) (string, error) {
	key := "debate"
	switch {
	case strings.Contains(system, "Synthesizer"):
		key = "synthesizer"
	case strings.Contains(system, "Investment Memo"), strings.Contains(system, "Market Reality"),
		strings.Contains(system, "investment memo"), strings.Contains(system, "market reality"):
		key = "writer"
	}
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()

	switch key {
	case "synthesizer":
		return f.synthesis, nil
	case "writer":
		return "## Summary\nReport body.", nil
	default:
		return "An argument.", nil
	}
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string, _ int) ([]types.SearchResult, error) {
	return []types.SearchResult{
		{Title: "Rover", URL: "https://www.rover.com/", Snippet: "Dog walkers near you"},
		{Title: "Wiki", URL: "https://en.wikipedia.org/wiki/Dog_walking", Snippet: query},
	}, nil
}

type failingScraper struct {
	mu    sync.Mutex
	calls int
}

func (s *failingScraper) ScrapeMany(_ context.Context, urls []string) []types.ScrapedPage {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	out := make([]types.ScrapedPage, len(urls))
	for i, u := range urls {
		out[i] = types.ScrapedPage{URL: u, Error: "connection refused"}
	}
	return out
}

func testDeps(r *fakeReasoner) *steps.Deps {
	logger, _ := test.NewNullLogger()
	return &steps.Deps{
		Reasoner: r,
		Searcher: fakeSearcher{},
		Scraper:  &failingScraper{},
		Settings: steps.DefaultSettings(),
		Logger:   logger,
	}
}

const businessIdea = "A subscription app that helps busy owners book dog walkers"
