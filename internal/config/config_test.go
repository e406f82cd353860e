package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 25, cfg.LLM.CallsPerMinute)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Analysis.DebateMode)
	assert.Equal(t, 5, cfg.Analysis.Threshold)
	assert.Equal(t, 3, cfg.Analysis.MaxPivotAttempts)
	assert.Equal(t, 10, cfg.Search.NumResults)
	assert.Equal(t, 30*time.Second, cfg.Scrape.Timeout)
	assert.Equal(t, 5, cfg.Scrape.MaxCompetitors)
	assert.Equal(t, 3, cfg.Scrape.Concurrency)
	assert.False(t, cfg.Scrape.UseBrowser)
	assert.Equal(t, DefaultSessionTTLHours, cfg.Session.TTLHours)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: gemini-2.0-flash
  timeout: 90s
analysis:
  debate_mode: false
  threshold: 6
search:
  num_results: 5
scrape:
  use_browser: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Analysis.DebateMode)
	assert.Equal(t, 6, cfg.Analysis.Threshold)
	assert.Equal(t, 5, cfg.Search.NumResults)
	assert.True(t, cfg.Scrape.UseBrowser)

	// untouched keys keep their defaults
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.AdvancedModel)
	assert.Equal(t, 3, cfg.Analysis.MaxPivotAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "analysis:\n  threshold: 6\n  max_pivot_attempts: 2\n")
	t.Setenv("PASS_THRESHOLD", "7")
	t.Setenv("ENABLE_DEBATE_MODE", "false")
	t.Setenv("AGENT_TIMEOUT", "2m")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/scout")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Analysis.Threshold)
	assert.Equal(t, 2, cfg.Analysis.MaxPivotAttempts)
	assert.False(t, cfg.Analysis.DebateMode)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://localhost/scout", cfg.DatabaseURL)
	assert.NoError(t, cfg.RequireReasoning())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Search, cfg.Search)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unclosed")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("MAX_PIVOT_ATTEMPTS", "three")

	_, err := Load("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold too high", func(c *Config) { c.Analysis.Threshold = 10 }},
		{"threshold too low", func(c *Config) { c.Analysis.Threshold = 0 }},
		{"negative pivots", func(c *Config) { c.Analysis.MaxPivotAttempts = -1 }},
		{"too many results", func(c *Config) { c.Search.NumResults = 11 }},
		{"zero rate", func(c *Config) { c.LLM.CallsPerMinute = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
		{"missing model", func(c *Config) { c.LLM.Model = "" }},
		{"zero scrape timeout", func(c *Config) { c.Scrape.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
		})
	}
}

func TestRequireReasoning(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireReasoning())
	cfg.LLM.APIKey = "key"
	assert.NoError(t, cfg.RequireReasoning())
}

func TestSearchEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.SearchEnabled())
	cfg.Search.APIKey = "key"
	assert.False(t, cfg.SearchEnabled())
	cfg.Search.CX = "cx"
	assert.True(t, cfg.SearchEnabled())
}
