package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/idea-scout/internal/config"
	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/fetch"
	"github.com/jonathan/idea-scout/internal/llm"
	"github.com/jonathan/idea-scout/internal/observability"
	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/research"
	"github.com/jonathan/idea-scout/internal/retry"
)

// loadConfig layers defaults, the config file, the environment and finally
// any flag the user set explicitly on cmd.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies only flags that were explicitly set, so unset flags never
// clobber file or environment values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	setInt := func(name string, dst *int) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}
	setString := func(name string, dst *string) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}

	setBool("debate", &cfg.Analysis.DebateMode)
	setInt("threshold", &cfg.Analysis.Threshold)
	setInt("max-pivots", &cfg.Analysis.MaxPivotAttempts)
	setBool("use-browser", &cfg.Scrape.UseBrowser)
	setInt("max-competitors", &cfg.Scrape.MaxCompetitors)
	setString("db-url", &cfg.DatabaseURL)
	setString("api-key", &cfg.LLM.APIKey)
	setInt("port", &cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("invalid flag: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

// requireServices reports missing credentials for the external services a run needs.
func requireServices(cfg *config.Config) error {
	if err := cfg.RequireReasoning(); err != nil {
		return err
	}
	if !cfg.SearchEnabled() {
		return fmt.Errorf("config error: GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX are required")
	}
	return nil
}

func modelConfig(cfg config.LLMConfig) *llm.Config {
	return llm.DefaultGeminiConfig().
		WithModel(llm.TierLite, cfg.LiteModel).
		WithModel(llm.TierStandard, cfg.Model).
		WithModel(llm.TierAdvanced, cfg.AdvancedModel)
}

// settingsFrom maps the configuration onto the tunables stages read.
func settingsFrom(cfg *config.Config) steps.Settings {
	return steps.Settings{
		Threshold:              cfg.Analysis.Threshold,
		MaxPivotAttempts:       cfg.Analysis.MaxPivotAttempts,
		SearchNumResults:       cfg.Search.NumResults,
		MaxCompetitorsToScrape: cfg.Scrape.MaxCompetitors,
	}
}

// buildDeps constructs the services shared by every stage of every run. The
// returned cleanup closes the reasoning client.
func buildDeps(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*steps.Deps, func(), error) {
	client, err := llm.NewClient(ctx, modelConfig(cfg.LLM), cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reasoning client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("failed to close reasoning client")
		}
	}

	svc := llm.NewService(client, llm.ServiceOptions{
		Limiter: llm.NewRateLimiter(cfg.LLM.CallsPerMinute, logger),
		Policy:  retry.ReasoningPolicy(),
		Timeout: cfg.LLM.Timeout,
		Tier:    llm.TierStandard,
		Logger:  logger,
	})

	searcher, err := research.NewGoogleSearcher(ctx, research.GoogleSearcherOptions{
		APIKey: cfg.Search.APIKey,
		CX:     cfg.Search.CX,
		Logger: logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	deps := &steps.Deps{
		Reasoner:       svc,
		FastReasoner:   svc.WithTier(llm.TierLite),
		WriterReasoner: svc.WithTier(llm.TierAdvanced),
		Searcher:       searcher,
		Settings:       settingsFrom(cfg),
		Logger:         logger,
	}
	if cfg.Scrape.MaxCompetitors > 0 {
		deps.Scraper = fetch.NewScraper(fetch.ScraperOptions{
			Timeout:     cfg.Scrape.Timeout,
			MaxPages:    cfg.Scrape.MaxCompetitors,
			Concurrency: cfg.Scrape.Concurrency,
			UseBrowser:  cfg.Scrape.UseBrowser,
			Cache:       fetch.NewPageCache(cfg.Scrape.CacheTTL),
			Logger:      logger,
		})
	}
	return deps, cleanup, nil
}

// openStore connects to PostgreSQL when a database URL is configured and
// falls back to an in-memory store otherwise. The schema is applied either way.
func openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (db.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Debug("DATABASE_URL not set; jobs are kept in memory")
		return db.NewMemoryStore(), func() {}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, database.Close, nil
}

// connectDatabase is for commands that only make sense against PostgreSQL.
func connectDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	return db.Connect(ctx, cfg.DatabaseURL)
}
