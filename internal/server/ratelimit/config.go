package ratelimit

import "time"

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept before cleanup drops it.
	IdleTTL         time.Duration
	EndpointConfigs []EndpointConfig
}

// NewConfig builds the server's limits. Job submission is the expensive path
// and gets jobsPerMinute per client; zero disables limiting altogether.
func NewConfig(jobsPerMinute int) *Config {
	if jobsPerMinute <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		EndpointConfigs: JobEndpointConfigs(jobsPerMinute),
	}
}

// JobEndpointConfigs returns the endpoint-specific limits.
func JobEndpointConfigs(jobsPerMinute int) []EndpointConfig {
	burst := max(jobsPerMinute/2, 1)
	return []EndpointConfig{
		// Each job runs a full evaluation against the reasoning service.
		{Path: "/jobs", Method: "POST", Limit: jobsPerMinute, Window: time.Minute, Burst: burst},
		{Path: "/jobs/stream", Method: "POST", Limit: jobsPerMinute, Window: time.Minute, Burst: burst},
		{Path: "/sessions", Method: "POST", Limit: 30, Window: time.Minute, Burst: 10},
	}
}
