// Package logship provides an embeddable batching log forwarder.
//
// Logship collects submitted records in a bounded in-memory buffer. When the
// buffer reaches capacity, a dispatcher drains it into a batch and ships the
// batch to a Datadog-style log intake as one gzip-compressed JSON request.
// A fixed pool of send slots caps how many batches are in flight at once;
// when every slot is busy and the buffer is full, submitters block. Failed
// batches are logged and discarded, never retried.
//
// # Basic Usage
//
// To embed logship in your application:
//
//	cfg := logship.Config{
//	    APIKey: "your-api-key",
//	}
//
//	ship, err := logship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := ship.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	rec := logship.NewRecord().
//	    Set("hostname", "web-1").
//	    Set("message", "request handled")
//	if err := ship.Submit(ctx, rec); err != nil {
//	    log.Printf("submit: %v", err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := ship.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Records
//
// A [Record] keeps its fields in submission order, and that order survives
// into the serialized message the intake receives. The hostname, vdom,
// lb_partition and log_type fields, when present, additionally feed the
// entry's routing metadata.
//
// # Configuration
//
// All [Config] fields have defaults set via [Config.SetDefaults]; a zero
// Config ships to the EU intake with a batch size of 400 and three
// concurrent connections. An empty APIKey is allowed and sent as-is.
//
// # Event Handling
//
// To observe pipeline activity, implement [EventHandler] and pass it via
// [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	ship, err := logship.New(cfg, logship.WithEventHandler(handler))
//
// Events are called synchronously from pipeline goroutines. Implementations
// should return quickly to avoid blocking sends.
//
// # Dependency Injection
//
// For testing, inject custom implementations of external dependencies:
//
//	ship, err := logship.New(cfg,
//	    logship.WithHTTPClient(mockClient),
//	    logship.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// A Logship instance is in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Logship.Status] to query the current state. Stopping an instance drops
// whatever is still buffered; only sends already in flight are given time
// to finish.
//
// # Plugins
//
// Logship supports optional plugins for extended functionality:
//
//	import "github.com/bft-labs/logship/plugins/configwatcher"
//
//	ship, err := logship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
package logship
