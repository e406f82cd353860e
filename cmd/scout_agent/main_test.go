package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/idea-scout/internal/config"
	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/llm"
	"github.com/jonathan/idea-scout/internal/observability"
	"github.com/jonathan/idea-scout/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "serve", "migrate", "history"} {
		assert.True(t, names[want], want)
	}
}

func TestRunCmd_RequiresIdea(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRunCmd_MissingAPIKey(t *testing.T) {
	_, err := execute(t, "run", businessIdea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY is required")
}

func TestRunCmd_MissingSearchCredentials(t *testing.T) {
	_, err := execute(t, "run", businessIdea, "--api-key", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX are required")
}

func TestRunCmd_InvalidFlagValue(t *testing.T) {
	_, err := execute(t, "run", businessIdea, "--threshold", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestServeCmd_RequiresSessionSecret(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "key")
	t.Setenv("GOOGLE_SEARCH_CX", "cx")

	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestMigrateCmd_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestHistoryCmd_RequiresSession(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

func TestApplyFlags(t *testing.T) {
	cmd := newRunCmd(&rootOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--threshold", "7", "--debate=false", "--db-url", "postgres://x"}))

	cfg := config.Default()
	cfg.Scrape.UseBrowser = true
	require.NoError(t, applyFlags(cmd, cfg))

	assert.Equal(t, 7, cfg.Analysis.Threshold)
	assert.False(t, cfg.Analysis.DebateMode)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)
	assert.True(t, cfg.Scrape.UseBrowser, "unset flags leave config values alone")
	assert.Equal(t, 3, cfg.Analysis.MaxPivotAttempts)
}

func TestApplyFlags_MissingFlagsIgnored(t *testing.T) {
	cmd := newMigrateCmd(&rootOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--db-url", "postgres://y"}))

	cfg := config.Default()
	require.NoError(t, applyFlags(cmd, cfg))
	assert.Equal(t, "postgres://y", cfg.DatabaseURL)
	assert.Equal(t, config.Default().Analysis, cfg.Analysis)
}

func TestLoadConfig_Verbose(t *testing.T) {
	cmd := newRunCmd(&rootOptions{})
	cfg, err := loadConfig(cmd, &rootOptions{verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestModelConfig(t *testing.T) {
	cfg := config.Default().LLM
	cfg.LiteModel = "lite-x"

	m := modelConfig(cfg)
	assert.Equal(t, "lite-x", m.GetModel(llm.TierLite))
	assert.Equal(t, cfg.Model, m.GetModel(llm.TierStandard))
	assert.Equal(t, cfg.AdvancedModel, m.GetModel(llm.TierAdvanced))
}

func TestSettingsFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Threshold = 6
	cfg.Scrape.MaxCompetitors = 2

	s := settingsFrom(cfg)
	assert.Equal(t, 6, s.Threshold)
	assert.Equal(t, 2, s.MaxCompetitorsToScrape)
	assert.Equal(t, cfg.Search.NumResults, s.SearchNumResults)
}

func TestOpenStore_InMemory(t *testing.T) {
	env, _ := testEnv(8)
	store, closeStore, err := openStore(context.Background(), config.Default(), env.logger)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &db.MemoryStore{}, store)
}

func TestExecuteRun_WritesReport(t *testing.T) {
	env, store := testEnv(8)
	var out bytes.Buffer
	env.out = &out
	path := filepath.Join(t.TempDir(), "report.md")

	result, err := executeRun(context.Background(), env, businessIdea, &runOptions{output: path, verbose: true})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, types.ReportInvestmentMemo, result.ReportType)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "The report.")

	printed := out.String()
	assert.Contains(t, printed, "Job created, starting analysis...")
	assert.Contains(t, printed, "RUN RESULT")
	assert.Contains(t, printed, "STAGES (5)")
	assert.Contains(t, printed, "Report written to "+path)

	job, err := store.GetJob(context.Background(), uuid.MustParse(result.JobID))
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusCompleted, job.Status)
}

func TestExecuteRun_PivotJourney(t *testing.T) {
	env, _ := testEnv(3)
	var out bytes.Buffer
	env.out = &out

	result, err := executeRun(context.Background(), env, businessIdea, &runOptions{quiet: true})
	require.NoError(t, err)
	assert.Equal(t, types.ReportMarketReality, result.ReportType)

	printed := out.String()
	assert.NotContains(t, printed, "Job created")
	assert.Contains(t, printed, "PIVOT JOURNEY")
	assert.Contains(t, printed, "Dog walking for seniors")
	assert.Contains(t, printed, "The report.")
}

func TestExecuteRun_InvalidInput(t *testing.T) {
	env, _ := testEnv(8)
	env.out = &bytes.Buffer{}

	result, err := executeRun(context.Background(), env, "asdfasdf", &runOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_input")
	require.NotNil(t, result)
	assert.Equal(t, types.StatusInvalidInput, result.Status)
}

func TestExecuteRun_ExistingSession(t *testing.T) {
	env, store := testEnv(8)
	env.out = &bytes.Buffer{}
	session, err := store.CreateSession(context.Background())
	require.NoError(t, err)

	_, err = executeRun(context.Background(), env, businessIdea, &runOptions{sessionID: session.ID.String(), quiet: true})
	require.NoError(t, err)

	jobs, err := store.ListSessionJobs(context.Background(), session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = executeRun(context.Background(), env, businessIdea, &runOptions{sessionID: uuid.NewString()})
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = executeRun(context.Background(), env, businessIdea, &runOptions{sessionID: "nope"})
	assert.Error(t, err)
}

func TestPrintHistory(t *testing.T) {
	env, store := testEnv(8)
	env.out = &bytes.Buffer{}
	ctx := context.Background()
	session, err := store.CreateSession(ctx)
	require.NoError(t, err)
	_, err = executeRun(ctx, env, businessIdea, &runOptions{sessionID: session.ID.String(), quiet: true})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printHistory(ctx, store, observability.NewPrinter(&out), session.ID.String(), 10))
	assert.Contains(t, out.String(), "JOB HISTORY")
	assert.Contains(t, out.String(), "completed")

	assert.Error(t, printHistory(ctx, store, observability.NewPrinter(&out), uuid.NewString(), 10))
	assert.Error(t, printHistory(ctx, store, observability.NewPrinter(&out), "bad", 10))
}
