package config

import (
	"fmt"
	"time"
)

// DefaultSessionTTLHours is how long a session token stays valid by default (30 days).
const DefaultSessionTTLHours = 720

// SessionConfig holds configuration for session token signing and validation.
type SessionConfig struct {
	Secret   string `yaml:"secret" env:"SESSION_SECRET"`
	TTLHours int    `yaml:"ttl_hours" env:"SESSION_TTL_HOURS" validate:"gte=1"`
}

// TTL returns the token lifetime.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Validate checks the configuration is usable for signing tokens.
func (c SessionConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("SESSION_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters, got: %d", len(c.Secret))
	}
	if c.TTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be at least 1 hour, got: %d", c.TTLHours)
	}
	return nil
}
