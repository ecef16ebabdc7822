package config

import (
	"fmt"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Settings holds the tunables read from the [settings] table of ghcp.toml.
// CLI flags override individual fields after loading.
type Settings struct {
	UserAgent         string  `toml:"user_agent,omitempty"`
	TimeoutSeconds    int     `toml:"timeout_seconds,omitempty"`
	MaxRetries        int     `toml:"max_retries,omitempty"`
	BackoffMillis     int     `toml:"backoff_millis,omitempty"`
	MaxBackoffSeconds int     `toml:"max_backoff_seconds,omitempty"`
	Parallel          int     `toml:"parallel,omitempty"`
	APIRate           float64 `toml:"api_rate,omitempty"` // requests per second, 0 = unlimited
	MaxRedirects      int     `toml:"max_redirects,omitempty"`
}

// DefaultSettings returns the settings used when ghcp.toml sets nothing.
func DefaultSettings() Settings {
	return Settings{
		UserAgent:         "ghcp/" + Version,
		TimeoutSeconds:    30,
		MaxRetries:        3,
		BackoffMillis:     500,
		MaxBackoffSeconds: 30,
		Parallel:          4,
		MaxRedirects:      5,
	}
}

// Validate rejects values that cannot be used.
func (s Settings) Validate() error {
	switch {
	case s.UserAgent == "":
		return fmt.Errorf("settings: user_agent must not be empty")
	case s.TimeoutSeconds <= 0:
		return fmt.Errorf("settings: timeout_seconds must be positive, got %d", s.TimeoutSeconds)
	case s.MaxRetries < 0:
		return fmt.Errorf("settings: max_retries must not be negative, got %d", s.MaxRetries)
	case s.BackoffMillis < 0:
		return fmt.Errorf("settings: backoff_millis must not be negative, got %d", s.BackoffMillis)
	case s.Parallel < 1:
		return fmt.Errorf("settings: parallel must be at least 1, got %d", s.Parallel)
	case s.APIRate < 0:
		return fmt.Errorf("settings: api_rate must not be negative, got %g", s.APIRate)
	case s.MaxRedirects < 0:
		return fmt.Errorf("settings: max_redirects must not be negative, got %d", s.MaxRedirects)
	}
	return nil
}

// Timeout returns the per-request deadline.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Backoff returns the initial retry backoff.
func (s Settings) Backoff() time.Duration {
	return time.Duration(s.BackoffMillis) * time.Millisecond
}

// MaxBackoff returns the retry backoff cap.
func (s Settings) MaxBackoff() time.Duration {
	if s.MaxBackoffSeconds <= 0 {
		return s.Backoff()
	}
	return time.Duration(s.MaxBackoffSeconds) * time.Second
}
