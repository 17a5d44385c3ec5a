package cliconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/bft-labs/logship/pkg/logship"
)

// Config holds CLI configuration for logship.
type Config struct {
	IntakeURL string
	APIKey    string

	BatchSize   int
	Concurrency int

	// Input is the NDJSON source path; "-" reads stdin.
	Input string

	LogLevel string

	// WatchConfig enables the config file watcher plugin.
	WatchConfig bool

	// WaitOnEOF keeps the process alive after the input hits EOF.
	WaitOnEOF bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		IntakeURL:   logship.DefaultIntakeURL,
		BatchSize:   logship.DefaultBatchSize,
		Concurrency: logship.DefaultConcurrency,
		Input:       "-",
		LogLevel:    "info",
		WatchConfig: true,
		APIKey:      os.Getenv("LOGSHIP_API_KEY"),
	}
}

// Validate checks the configuration for errors and normalizes it.
func (c *Config) Validate() error {
	if c.IntakeURL == "" {
		c.IntakeURL = logship.DefaultIntakeURL
	}

	// Ensure no trailing slash
	if len(c.IntakeURL) > 0 && c.IntakeURL[len(c.IntakeURL)-1] == '/' {
		c.IntakeURL = c.IntakeURL[:len(c.IntakeURL)-1]
	}

	u, err := url.Parse(c.IntakeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must be an absolute URL, got %q", c.IntakeURL)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch-size must be at least 1")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if c.Input == "" {
		return fmt.Errorf("input is required (use - for stdin)")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
