package globalstate

import (
	"io"
	"sync/atomic"

	"github.com/michsien/buck/internal/routing"
)

// State is the lifecycle state of one invocation's routing.
type State int32

// Invocation routing states.
const (
	StateUnset State = iota
	StateActive
	StateTornDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Teardown reverses one Setup. Close may be called any number of times;
// only the first call does anything.
type Teardown struct {
	manager   *Manager
	original  io.Writer
	commandID string
	worker    routing.WorkerID
	state     atomic.Int32
}

// Close detaches the invocation's log file, points its console entry back at
// the original stream, and releases every worker attributed to it.
func (t *Teardown) Close() error {
	if !t.state.CompareAndSwap(int32(StateActive), int32(StateTornDown)) {
		return nil
	}
	return t.manager.teardown(t.commandID, t.original)
}

// State reports whether the invocation is still active.
func (t *Teardown) State() State {
	return State(t.state.Load())
}

// CommandID returns the invocation this Teardown belongs to.
func (t *Teardown) CommandID() string {
	return t.commandID
}

// Worker returns the worker that was registered during Setup.
func (t *Teardown) Worker() routing.WorkerID {
	return t.worker
}

var _ io.Closer = (*Teardown)(nil)
