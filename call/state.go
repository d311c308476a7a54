package call

// State represents the execution state of a call.
type State string

const (
	// StateWaiting means the call is queued and has not started.
	StateWaiting State = "waiting"
	// StateRunning means the callable is executing.
	StateRunning State = "running"
	// StateSucceeded means the callable returned a result.
	StateSucceeded State = "succeeded"
	// StateFailed means the callable returned an error.
	StateFailed State = "failed"
	// StateCanceled means the call was canceled before it finished.
	StateCanceled State = "canceled"
)

// TerminalStates lists every state a call ends in.
var TerminalStates = []State{StateSucceeded, StateFailed, StateCanceled}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateWaiting, StateRunning, StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// Started reports whether the call has at least begun running.
func (s State) Started() bool {
	return s == StateRunning || s.Terminal()
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateWaiting:
		return next == StateRunning || next == StateCanceled
	case StateRunning:
		return next.Terminal()
	}
	return false
}
