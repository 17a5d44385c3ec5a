package logship

import "time"

// State is the lifecycle phase of a Logship instance.
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

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after the intake accepts a batch.
type SendSuccessEvent struct {
	RecordCount int
	BytesSent   int
	Duration    time.Duration
}

// SendErrorEvent is emitted when a batch send fails. The batch is already
// discarded by the time the handler runs; there is no retry.
type SendErrorEvent struct {
	Error       error
	RecordCount int
}

// EventHandler receives notifications about instance activity. Callbacks run
// synchronously on pipeline goroutines, so implementations must return
// quickly and must not call back into the instance.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler is a no-op EventHandler. Embed it to implement only the
// callbacks you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}
