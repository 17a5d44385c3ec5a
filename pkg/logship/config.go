package logship

import (
	"fmt"
	"net/url"

	"github.com/bft-labs/logship/internal/domain"
)

// Defaults applied by Config.SetDefaults.
const (
	// DefaultIntakeURL is the EU log intake endpoint.
	DefaultIntakeURL = "https://http-intake.logs.datadoghq.eu/api/v2/logs"

	// DefaultBatchSize is the buffer capacity when none is configured.
	DefaultBatchSize = 400

	// DefaultConcurrency is the number of simultaneous intake requests when
	// none is configured.
	DefaultConcurrency = 3
)

// Config holds the configuration for a Logship instance. The zero value is
// usable after SetDefaults, which New applies automatically.
type Config struct {
	// IntakeURL is the endpoint batches are POSTed to.
	// Defaults to DefaultIntakeURL.
	IntakeURL string

	// APIKey authenticates requests against the intake. It may be left
	// empty; the key header is still sent and the intake answers with a
	// status the pipeline logs.
	APIKey string

	// BatchSize is the record buffer capacity. Reaching it blocks
	// submitters and triggers a drain. Defaults to DefaultBatchSize.
	BatchSize int

	// Concurrency caps how many batches are in flight to the intake at
	// once. Defaults to DefaultConcurrency.
	Concurrency int
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.IntakeURL == "" {
		c.IntakeURL = DefaultIntakeURL
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// Validate checks the configuration, wrapping ErrInvalidConfig so callers
// can test for it with errors.Is.
func (c *Config) Validate() error {
	u, err := url.Parse(c.IntakeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: intake URL %q is not an absolute URL", domain.ErrInvalidConfig, c.IntakeURL)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", domain.ErrInvalidConfig, c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", domain.ErrInvalidConfig, c.Concurrency)
	}
	return nil
}
