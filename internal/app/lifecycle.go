package app

import (
	"sync"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/pkg/log"
)

// State is the lifecycle phase of a pipeline instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// validNext enumerates the transitions the lifecycle accepts. Stopping is
// reachable from Starting so a Stop that lands before startup finished still
// works, and a crashed instance restarts back through Starting.
var validNext = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// StateObserver is notified after each accepted transition. The callback
// runs outside the lifecycle lock.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle serializes state transitions and tracks worker goroutines so
// shutdown can wait for them.
type Lifecycle struct {
	mu       sync.Mutex
	state    State
	wg       sync.WaitGroup
	observer StateObserver
	logger   log.Logger
}

func NewLifecycle(logger log.Logger, observer StateObserver) *Lifecycle {
	return &Lifecycle{
		state:    StateStopped,
		observer: observer,
		logger:   logger,
	}
}

// State returns the current phase.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// TransitionTo moves the lifecycle to next, rejecting steps the transition
// table does not allow. The returned sentinel tells the caller which way the
// rejection went: ErrNotRunning from a dormant state, ErrAlreadyRunning from
// an active one.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !transitionAllowed(prev, next) {
		l.mu.Unlock()
		return transitionError(prev)
	}
	l.state = next
	l.mu.Unlock()

	l.logger.Debug("state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason))
	if l.observer != nil {
		l.observer.OnStateChange(prev, next, reason)
	}
	return nil
}

func transitionAllowed(from, to State) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from State) error {
	switch from {
	case StateStopped, StateCrashed:
		return domain.ErrNotRunning
	default:
		return domain.ErrAlreadyRunning
	}
}

// AddWorker registers a goroutine the shutdown sequence must wait for.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone signals that a registered goroutine has finished.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout blocks until every registered worker has finished, or
// until the timeout elapses, in which case it returns ErrShutdownTimeout
// and leaves the stragglers behind.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return domain.ErrShutdownTimeout
	}
}
