// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values are layered: built-in
// defaults, then an optional YAML file, then the environment. CLI flags are
// applied last by the command that owns them.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Search   SearchConfig   `yaml:"search"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`

	// DatabaseURL is optional for CLI runs; without it jobs are kept in memory.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

// LLMConfig selects the reasoning models and how fast they may be called.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model          string        `yaml:"model" env:"LLM_MODEL" validate:"required"`
	LiteModel      string        `yaml:"lite_model" env:"LLM_MODEL_LITE" validate:"required"`
	AdvancedModel  string        `yaml:"advanced_model" env:"LLM_MODEL_ADVANCED" validate:"required"`
	CallsPerMinute int           `yaml:"calls_per_minute" env:"LLM_CALLS_PER_MINUTE" validate:"gte=1,lte=1000"`
	Timeout        time.Duration `yaml:"timeout" env:"AGENT_TIMEOUT" validate:"gte=0"`
}

// AnalysisConfig controls the evaluation strategy.
type AnalysisConfig struct {
	DebateMode bool `yaml:"debate_mode" env:"ENABLE_DEBATE_MODE"`
	// Threshold is the single pass/pivot boundary: scores strictly above it pass.
	Threshold        int `yaml:"threshold" env:"PASS_THRESHOLD" validate:"gte=1,lte=9"`
	MaxPivotAttempts int `yaml:"max_pivot_attempts" env:"MAX_PIVOT_ATTEMPTS" validate:"gte=0,lte=10"`
}

// SearchConfig configures the web search service.
type SearchConfig struct {
	APIKey     string `yaml:"api_key" env:"GOOGLE_SEARCH_API_KEY"`
	CX         string `yaml:"cx" env:"GOOGLE_SEARCH_CX"`
	NumResults int    `yaml:"num_results" env:"SEARCH_NUM_RESULTS" validate:"gte=1,lte=10"`
}

// ScrapeConfig configures competitor page fetching.
type ScrapeConfig struct {
	Timeout        time.Duration `yaml:"timeout" env:"SCRAPE_TIMEOUT" validate:"gt=0"`
	MaxCompetitors int           `yaml:"max_competitors" env:"MAX_COMPETITORS_TO_SCRAPE" validate:"gte=0,lte=20"`
	Concurrency    int           `yaml:"concurrency" env:"SCRAPE_CONCURRENCY" validate:"gte=1,lte=10"`
	UseBrowser     bool          `yaml:"use_browser" env:"USE_BROWSER"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"SCRAPE_CACHE_TTL" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT" validate:"gte=1,lte=65535"`
	// JobsPerMinute limits job submissions per client. Zero disables the limit.
	JobsPerMinute int `yaml:"jobs_per_minute" env:"JOBS_PER_MINUTE" validate:"gte=0"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=text json"`
	Output     string `yaml:"output" env:"LOG_OUTPUT" validate:"oneof=stdout file both"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" validate:"gte=0"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:          "gemini-2.5-flash",
			LiteModel:      "gemini-2.5-flash-lite",
			AdvancedModel:  "gemini-2.5-pro",
			CallsPerMinute: 25,
			Timeout:        60 * time.Second,
		},
		Analysis: AnalysisConfig{
			DebateMode:       true,
			Threshold:        5,
			MaxPivotAttempts: 3,
		},
		Search: SearchConfig{NumResults: 10},
		Scrape: ScrapeConfig{
			Timeout:        30 * time.Second,
			MaxCompetitors: 5,
			Concurrency:    3,
			CacheTTL:       time.Hour,
		},
		Server:  ServerConfig{Port: 8080, JobsPerMinute: 5},
		Session: SessionConfig{TTLHours: DefaultSessionTTLHours},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			File:       "logs/scout.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate checks value ranges. It does not require credentials; commands that
// need them call RequireReasoning or Session.Validate.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RequireReasoning reports a missing reasoning-service key.
func (c *Config) RequireReasoning() error {
	if c.LLM.APIKey == "" {
		return errors.New("config error: GEMINI_API_KEY is required")
	}
	return nil
}

// SearchEnabled reports whether web search credentials are configured.
func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.CX != ""
}
