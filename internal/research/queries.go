package research

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/idea-scout/internal/types"
)

// marketResultsPerQuery is fixed; competitor queries use the configured count.
const marketResultsPerQuery = 5

// Query is one search to run.
type Query struct {
	Text       string
	NumResults int
}

// MarketQueries returns the market-size, growth and demographics searches for an idea.
func MarketQueries(idea string) []Query {
	return []Query{
		{Text: fmt.Sprintf("%s market size TAM 2025 2026", idea), NumResults: marketResultsPerQuery},
		{Text: fmt.Sprintf("%s industry growth rate trends", idea), NumResults: marketResultsPerQuery},
		{Text: fmt.Sprintf("%s target market demographics", idea), NumResults: marketResultsPerQuery},
	}
}

// CompetitorQueries returns the competitor discovery searches for an idea.
func CompetitorQueries(idea string, numResults int) []Query {
	return []Query{
		{Text: fmt.Sprintf("%s competitors companies startups", idea), NumResults: numResults},
		{Text: fmt.Sprintf("best %s apps services 2026", idea), NumResults: numResults},
		{Text: fmt.Sprintf("%s market leaders alternatives", idea), NumResults: numResults},
	}
}

// SearchAll runs the queries concurrently and returns their results in query order,
// deduplicated by URL. Any query failing after its retries fails the whole call.
func SearchAll(ctx context.Context, searcher Searcher, queries []Query) ([]types.SearchResult, error) {
	perQuery := make([][]types.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results, err := searcher.Search(gctx, q.Text, q.NumResults)
			if err != nil {
				return fmt.Errorf("query %q: %w", q.Text, err)
			}
			perQuery[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []types.SearchResult
	for _, results := range perQuery {
		all = append(all, results...)
	}
	return Dedup(all), nil
}

// Dedup drops results whose URL was already seen, keeping the first occurrence.
func Dedup(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		unique = append(unique, r)
	}
	return unique
}

// FormatResults renders results as the markdown block handed to the reasoning service.
func FormatResults(results []types.SearchResult, limit int) string {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("**%s**\nURL: %s\n%s", r.Title, r.URL, r.Snippet))
	}
	return strings.Join(blocks, "\n\n")
}
