package event

import "fmt"

// State is the lifecycle state of one request's event stream.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// terminal reports whether s permits no further transitions.
func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stream enforces the per-request state machine
// Idle -> Running -> {Completed, Failed}. Both the streaming and the
// synchronous consumption mode share this machine; they differ only in which
// events they forward to the caller.
type Stream struct {
	state State
}

// NewStream returns a stream in the Idle state.
func NewStream() *Stream {
	return &Stream{state: StateIdle}
}

// State returns the current state.
func (s *Stream) State() State { return s.state }

// Accept records one event against the state machine. The first event moves
// the stream to Running; a terminal event moves it to Completed or Failed.
// Accepting an event after a terminal state is an invariant violation.
func (s *Stream) Accept(ev Event) error {
	if s.state.terminal() {
		return fmt.Errorf("event after terminal state %s", s.state)
	}
	switch ev.(type) {
	case Completed:
		s.state = StateCompleted
	case Failed:
		s.state = StateFailed
	default:
		s.state = StateRunning
	}
	return nil
}
