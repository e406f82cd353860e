package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/idea-scout/internal/retry"
	"github.com/jonathan/idea-scout/internal/types"
)

// Default fan-out bounds for ScrapeMany.
const (
	DefaultMaxPages    = 5
	DefaultConcurrency = 3
)

// PageScraper is what the competitor stage depends on.
type PageScraper interface {
	ScrapeMany(ctx context.Context, urls []string) []types.ScrapedPage
}

// ScraperOptions configures a Scraper.
type ScraperOptions struct {
	Timeout     time.Duration
	MaxPages    int
	Concurrency int
	// UseBrowser re-renders thin pages in a headless browser.
	UseBrowser bool
	Cache      *PageCache
	// Policy defaults to retry.FetchPolicy.
	Policy *retry.Policy
	Logger logrus.FieldLogger
}

// Scraper fetches pages and reports every outcome as a ScrapedPage instead of an error.
type Scraper struct {
	opts        *Options
	maxPages    int
	concurrency int
	useBrowser  bool
	cache       *PageCache
	policy      retry.Policy
	logger      logrus.FieldLogger

	render RenderFunc
}

var _ PageScraper = (*Scraper)(nil)

// NewScraper creates a Scraper.
func NewScraper(o ScraperOptions) *Scraper {
	fetchOpts := DefaultOptions()
	if o.Timeout > 0 {
		fetchOpts.Timeout = o.Timeout
	}
	maxPages := o.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := o.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	policy := retry.FetchPolicy()
	if o.Policy != nil {
		policy = *o.Policy
	}
	if policy.Retryable == nil {
		policy.Retryable = retryableFetch
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	return &Scraper{
		opts:        fetchOpts,
		maxPages:    maxPages,
		concurrency: concurrency,
		useBrowser:  o.UseBrowser,
		cache:       o.Cache,
		policy:      policy,
		logger:      logger.WithField("component", "scraper"),
		render:      WithBrowser,
	}
}

// Scrape fetches one page. Failures are reported in the returned page.
func (s *Scraper) Scrape(ctx context.Context, url string) types.ScrapedPage {
	if page, ok := s.cache.Get(url); ok {
		return page
	}

	var result *Result
	err := s.policy.Do(ctx, "fetch", func(ctx context.Context) error {
		r, err := URL(ctx, url, s.opts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		s.logger.WithField("url", url).WithError(err).Debug("page fetch failed")
		return types.ScrapedPage{URL: url, Success: false, Error: err.Error()}
	}

	text, err := ExtractMainText(result.HTML, ProductPageSelectors())
	if err != nil {
		return types.ScrapedPage{URL: url, Success: false, Error: err.Error()}
	}
	title := ExtractTitle(result.HTML)

	if s.useBrowser && ShouldUseBrowser(text) {
		html, renderErr := s.render(ctx, url, s.opts.Timeout)
		if renderErr == nil {
			if rendered, err := ExtractMainText(html, ProductPageSelectors()); err == nil && len(rendered) > len(text) {
				text = rendered
				if t := ExtractTitle(html); t != "" {
					title = t
				}
			}
			s.logger.WithField("url", url).Debug("rendered page in browser")
		} else {
			s.logger.WithField("url", url).WithError(renderErr).Debug("browser fallback failed")
		}
	}

	if text == "" {
		return types.ScrapedPage{URL: url, Title: title, Success: false, Error: "no readable content"}
	}

	page := types.ScrapedPage{URL: url, Title: title, Content: text, Success: true}
	s.cache.Put(page)
	return page
}

// ScrapeMany fetches up to the configured number of URLs with bounded concurrency.
// The result has one page per fetched URL, in input order. It never fails as a whole.
func (s *Scraper) ScrapeMany(ctx context.Context, urls []string) []types.ScrapedPage {
	if len(urls) > s.maxPages {
		urls = urls[:s.maxPages]
	}
	pages := make([]types.ScrapedPage, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			pages[i] = s.Scrape(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, p := range pages {
		if p.Success {
			succeeded++
		}
	}
	s.logger.WithFields(logrus.Fields{"requested": len(urls), "succeeded": succeeded}).Info("competitor pages fetched")
	return pages
}

func retryableFetch(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return !fetchErr.Permanent()
	}
	return true
}
