// Package research runs the web searches behind market and competitor analysis.
package research

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/idea-scout/internal/retry"
	"github.com/jonathan/idea-scout/internal/types"
)

// maxResultsPerQuery is the Custom Search API's page size ceiling.
const maxResultsPerQuery = 10

// Searcher returns ordered results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]types.SearchResult, error)
}

// GoogleSearcher implements Searcher with the Custom Search JSON API
type GoogleSearcher struct {
	svc    *customsearch.Service
	cx     string
	policy retry.Policy
	logger logrus.FieldLogger
}

// GoogleSearcherOptions configures a GoogleSearcher.
type GoogleSearcherOptions struct {
	APIKey string
	CX     string
	// Policy defaults to retry.SearchPolicy.
	Policy *retry.Policy
	Logger logrus.FieldLogger
	// ClientOptions are passed to the underlying service, e.g. option.WithEndpoint in tests.
	ClientOptions []option.ClientOption
}

// NewGoogleSearcher creates a new searcher
func NewGoogleSearcher(ctx context.Context, opts GoogleSearcherOptions) (*GoogleSearcher, error) {
	if opts.APIKey == "" || opts.CX == "" {
		return nil, fmt.Errorf("search API key and engine id are required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, opts.ClientOptions...)
	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	policy := retry.SearchPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	return &GoogleSearcher{
		svc:    svc,
		cx:     opts.CX,
		policy: policy,
		logger: logger.WithField("component", "search"),
	}, nil
}

// Search runs one query, retrying transient failures.
func (g *GoogleSearcher) Search(ctx context.Context, query string, numResults int) ([]types.SearchResult, error) {
	num := min(max(numResults, 1), maxResultsPerQuery)

	var results []types.SearchResult
	err := g.policy.Do(ctx, "search", func(ctx context.Context) error {
		resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num)).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		results = make([]types.SearchResult, 0, len(resp.Items))
		for _, item := range resp.Items {
			results = append(results, types.SearchResult{
				Title:   item.Title,
				URL:     item.Link,
				Snippet: item.Snippet,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{"query": query, "results": len(results)}).Debug("search complete")
	return results, nil
}
