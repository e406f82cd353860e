package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/prompts"
	"github.com/jonathan/idea-scout/internal/research"
	"github.com/jonathan/idea-scout/internal/types"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

const (
	maxSearchResultsInPrompt = 10
	maxScrapedCharsPerPage   = 2000
	noSearchResults          = "(No search results available)"
	noScrapedContent         = "(Unable to scrape competitor websites - using search results only)"
)

// MarketResearcher sizes the market for the current idea.
type MarketResearcher struct {
	deps *Deps
}

// NewMarketResearcher creates the market research stage.
func NewMarketResearcher(deps *Deps) *MarketResearcher {
	return &MarketResearcher{deps: deps}
}

func (s *MarketResearcher) Name() string { return StageMarketResearcher }

func (s *MarketResearcher) Run(ctx context.Context, state *types.RunState) Result {
	idea := state.CurrentIdea

	results, err := research.SearchAll(ctx, s.deps.Searcher, research.MarketQueries(idea))
	if err != nil {
		return Failure(fmt.Errorf("market search: %w", err))
	}

	system, err := prompts.Get("research.json", "market-system")
	if err != nil {
		return Failure(err)
	}
	prompt, err := prompts.Render("research.json", "market-analysis", map[string]string{
		"Idea":          idea,
		"SearchResults": orDefault(research.FormatResults(results, 0), noSearchResults),
	})
	if err != nil {
		return Failure(err)
	}

	var out types.MarketResearch
	if err := s.deps.Reasoner.GenerateStructured(ctx, prompt, system, schemafiles.MarketResearch, &out); err != nil {
		return Failure(fmt.Errorf("market analysis: %w", err))
	}

	s.deps.logger().WithFields(logrus.Fields{
		"component": "market_researcher",
		"results":   len(results),
		"maturity":  out.MarketMaturity,
	}).Debug("market research complete")

	return Success(types.StateUpdate{
		Status:         types.StatusAnalyzingCompetitors,
		MarketResearch: &out,
	})
}

// CompetitorAnalyst profiles the competitive landscape. Page fetching is best
// effort; when every fetch fails the analysis runs on search snippets alone.
type CompetitorAnalyst struct {
	deps *Deps
}

// NewCompetitorAnalyst creates the competitor analysis stage.
func NewCompetitorAnalyst(deps *Deps) *CompetitorAnalyst {
	return &CompetitorAnalyst{deps: deps}
}

func (s *CompetitorAnalyst) Name() string { return StageCompetitorAnalyst }

func (s *CompetitorAnalyst) Run(ctx context.Context, state *types.RunState) Result {
	idea := state.CurrentIdea
	settings := s.deps.Settings

	results, err := research.SearchAll(ctx, s.deps.Searcher, research.CompetitorQueries(idea, settings.SearchNumResults))
	if err != nil {
		return Failure(fmt.Errorf("competitor search: %w", err))
	}

	var pages []types.ScrapedPage
	if s.deps.Scraper != nil {
		if urls := research.ScrapeCandidates(results, settings.MaxCompetitorsToScrape); len(urls) > 0 {
			pages = s.deps.Scraper.ScrapeMany(ctx, urls)
		}
	}

	system, err := prompts.Get("research.json", "competitor-system")
	if err != nil {
		return Failure(err)
	}
	prompt, err := prompts.Render("research.json", "competitor-analysis", map[string]string{
		"Idea":           idea,
		"SearchResults":  orDefault(research.FormatResults(results, maxSearchResultsInPrompt), noSearchResults),
		"ScrapedContent": FormatScrapedPages(pages),
	})
	if err != nil {
		return Failure(err)
	}

	var out types.CompetitorAnalysis
	if err := s.deps.Reasoner.GenerateStructured(ctx, prompt, system, schemafiles.CompetitorAnalysis, &out); err != nil {
		return Failure(fmt.Errorf("competitor analysis: %w", err))
	}
	if out.Competitors == nil {
		out.Competitors = []types.CompetitorProfile{}
	}

	return Success(types.StateUpdate{
		Status:             types.StatusCritiquing,
		CompetitorAnalysis: &out,
	})
}

// FormatScrapedPages renders the successfully fetched pages, each cut to 2000 characters.
func FormatScrapedPages(pages []types.ScrapedPage) string {
	var b strings.Builder
	for _, p := range pages {
		if !p.Success || strings.TrimSpace(p.Content) == "" {
			continue
		}
		title := p.Title
		if title == "" {
			title = p.URL
		}
		fmt.Fprintf(&b, "\n\n---\n**%s** (%s)\n%s", title, p.URL, truncate(p.Content, maxScrapedCharsPerPage))
	}
	if b.Len() == 0 {
		return noScrapedContent
	}
	return b.String()
}
