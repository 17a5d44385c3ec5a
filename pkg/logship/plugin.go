package logship

import (
	"context"

	"github.com/bft-labs/logship/pkg/log"
)

// Plugin extends a Logship instance with auxiliary behavior. Plugins are
// initialized in registration order during Start and shut down in reverse
// order during Stop.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called during Start, before the pipeline accepts
	// records. Returning an error aborts the start and the instance
	// transitions to StateCrashed.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called during Stop, after in-flight sends have finished.
	Shutdown(ctx context.Context) error
}

// PluginConfig carries the instance configuration plugins may need.
type PluginConfig struct {
	IntakeURL   string
	APIKey      string
	BatchSize   int
	Concurrency int
	Logger      log.Logger
}
