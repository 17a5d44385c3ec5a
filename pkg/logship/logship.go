package logship

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	httpAdapter "github.com/bft-labs/logship/internal/adapters/http"
	"github.com/bft-labs/logship/internal/app"
	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// ShutdownTimeout bounds how long Stop waits for in-flight sends to finish.
const ShutdownTimeout = 30 * time.Second

// Errors returned by the public API. They wrap the same sentinels the
// pipeline uses internally, so errors.Is works across the boundary.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdown        = domain.ErrShutdown
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// Logship is an embeddable batching log forwarder. Submitted records collect
// in a bounded buffer; when the buffer fills, a dispatcher drains it into a
// batch and ships it to the intake over a bounded pool of connections.
// Use New() to create an instance, then Start() before submitting.
type Logship struct {
	config Config
	opts   options

	lifecycle *app.Lifecycle
	sender    ports.BatchSender
	logger    log.Logger
	emitter   *eventEmitterWrapper

	plugins []Plugin

	// ownClient is set when New built the HTTP client itself; Stop closes
	// its idle connections.
	ownClient *http.Client

	mu         sync.Mutex
	buffer     *app.RecordBuffer
	dispatcher *app.Dispatcher
	pool       *app.WorkerPool
	cancel     context.CancelFunc
}

// New creates a Logship instance with the given configuration.
// The instance is created in StateStopped; call Start() before submitting.
// Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Logship, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger
	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	// Create event emitter wrapper
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	// Create lifecycle manager
	lifecycle := app.NewLifecycle(logger, emitter)

	// Create the HTTP client unless the caller injected one
	var ownClient *http.Client
	client := o.httpClient
	if client == nil {
		ownClient = httpAdapter.NewDefaultClient(cfg.Concurrency)
		client = ownClient
	}

	sender := httpAdapter.NewSender(cfg.IntakeURL, cfg.APIKey, client, logger)

	return &Logship{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		sender:    sender,
		logger:    logger,
		emitter:   emitter,
		plugins:   o.plugins,
		ownClient: ownClient,
	}, nil
}

// Start brings the pipeline up and returns once it accepts submissions.
// The provided context scopes the pipeline's lifetime: cancelling it has
// the same effect as calling Stop, minus the shutdown bookkeeping.
// Returns ErrAlreadyRunning if the instance is not stopped.
func (l *Logship) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Transition to starting
	if err := l.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	// Create cancellable context
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	// Build a fresh pipeline each run so a stopped instance can start again
	l.buffer = app.NewRecordBuffer(l.config.BatchSize)
	l.pool = app.NewWorkerPool(l.config.Concurrency, l.sender, l.lifecycle, l.emitter, l.logger)
	l.dispatcher = app.NewDispatcher(l.buffer, l.pool, l.logger)

	// Initialize plugins
	pluginCfg := PluginConfig{
		IntakeURL:   l.config.IntakeURL,
		APIKey:      l.config.APIKey,
		BatchSize:   l.config.BatchSize,
		Concurrency: l.config.Concurrency,
		Logger:      l.logger,
	}
	for _, p := range l.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = l.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		l.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	// Run the dispatcher in a goroutine
	dispatcher := l.dispatcher
	l.lifecycle.AddWorker()
	go func() {
		defer l.lifecycle.WorkerDone()

		// Transition to running
		if err := l.lifecycle.TransitionTo(app.StateRunning, "dispatcher starting"); err != nil {
			l.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		if err := dispatcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("dispatcher error", log.Err(err))
			_ = l.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	}()

	l.logger.Info("logship started",
		log.String("intake_url", l.config.IntakeURL),
		log.Int("batch_size", l.config.BatchSize),
		log.Int("concurrency", l.config.Concurrency))
	return nil
}

// Stop shuts the pipeline down. New submissions are rejected immediately,
// records still buffered are dropped, and sends already in flight get up to
// ShutdownTimeout to finish. Returns nil on graceful shutdown,
// ErrShutdownTimeout if workers had to be abandoned, ErrNotRunning if the
// instance was not started.
func (l *Logship) Stop() error {
	l.mu.Lock()

	// Transition to stopping
	if err := l.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		l.mu.Unlock()
		return err
	}

	// Reject new submissions and release producers parked on a full buffer
	l.buffer.Close()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	// In-flight sends run on detached contexts; this waits for them. What
	// is still buffered is dropped by the dispatcher on its way out.
	err := l.lifecycle.WaitWithTimeout(ShutdownTimeout)

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(l.plugins) - 1; i >= 0; i-- {
		p := l.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			l.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	if l.ownClient != nil {
		l.ownClient.CloseIdleConnections()
	}

	if err != nil {
		_ = l.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = l.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	l.logger.Info("logship stopped")
	return nil
}

// Submit hands one record to the pipeline. It blocks while the buffer is
// full, which is how backpressure reaches the caller; cancel ctx to abandon
// the wait. Returns ErrNotRunning before Start and ErrShutdown once Stop
// has begun.
func (l *Logship) Submit(ctx context.Context, rec *Record) error {
	buffer, dispatcher, err := l.pipeline()
	if err != nil {
		return err
	}

	full, err := buffer.Enqueue(ctx, rec)
	if err != nil {
		return err
	}
	if full {
		dispatcher.Wake()
	}
	return nil
}

// SubmitMany submits records in order, applying the same backpressure as
// Submit to each one. It stops at the first failure and returns that error;
// records already submitted stay submitted.
func (l *Logship) SubmitMany(ctx context.Context, records []*Record) error {
	for _, rec := range records {
		if err := l.Submit(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// pipeline returns the live buffer and dispatcher, or the error matching
// the instance's current phase.
func (l *Logship) pipeline() (*app.RecordBuffer, *app.Dispatcher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.lifecycle.State() {
	case app.StateStarting, app.StateRunning:
		return l.buffer, l.dispatcher, nil
	case app.StateStopping:
		return nil, nil, domain.ErrShutdown
	case app.StateStopped:
		if l.buffer != nil {
			// Started once and stopped since.
			return nil, nil, domain.ErrShutdown
		}
		return nil, nil, domain.ErrNotRunning
	default:
		return nil, nil, domain.ErrNotRunning
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (l *Logship) Status() State {
	return convertState(l.lifecycle.State())
}

// IsRunning reports whether the instance is anywhere between Start and the
// end of Stop.
func (l *Logship) IsRunning() bool {
	switch l.lifecycle.State() {
	case app.StateStarting, app.StateRunning, app.StateStopping:
		return true
	default:
		return false
	}
}

// eventEmitterWrapper adapts EventHandler to the internal observer
// interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(recordCount, bytesSent int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		RecordCount: recordCount,
		BytesSent:   bytesSent,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, recordCount int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Error:       err,
		RecordCount: recordCount,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
