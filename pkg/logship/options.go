package logship

import (
	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Record is an ordered collection of fields. Field order is preserved from
// submission through to the serialized message on the wire.
type Record = domain.Record

// NewRecord creates an empty record. Populate it with Record.Set.
func NewRecord() *Record {
	return domain.NewRecord()
}

// RecordFromPairs builds a record from alternating name/value pairs:
//
//	logship.RecordFromPairs("hostname", "web-1", "log_type", "app")
func RecordFromPairs(pairs ...any) *Record {
	return domain.RecordFromPairs(pairs...)
}

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the structured logging interface from pkg/log.
type Logger = log.Logger

// Option configures optional behavior of Logship.
type Option func(*options)

// options holds the optional configuration for a Logship instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
}

// WithHTTPClient sets a custom HTTP client for intake communication.
// If not provided, a default client with six second connect, response and
// request timeouts is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for pipeline events.
// Events are called synchronously from pipeline goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Logship starts.
// Plugins are initialized in registration order and shut down in reverse
// order. For built-in plugins, use their specific options such as
// WithConfigWatcher().
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
