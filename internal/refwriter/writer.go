// Package refwriter provides a writer that can be shared by several owners.
//
// Every owner holds its own Reference. The underlying sink is flushed and
// closed exactly once, when the last live Reference is closed. Log-file
// rotation relies on this: the default log file can be replaced while
// invocations that still hold a Reference to the previous file keep writing to
// it until they tear down.
package refwriter

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when a closed Reference is used, or when a new
// Reference is requested from a sink that has already been closed.
var ErrClosed = errors.New("refwriter: writer is closed")

// Sink is the real destination behind a set of references.
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

// shared is the state common to every Reference of one sink.
type shared struct {
	sink   Sink
	name   string
	refs   int
	mu     sync.Mutex
	closed bool
}

// Reference is one logical handle on a shared sink.
// All methods are safe for concurrent use.
type Reference struct {
	shared *shared
	closed atomic.Bool
}

// New wraps sink and returns its first Reference.
// The name is used in log fields and error messages only.
func New(name string, sink Sink) *Reference {
	return &Reference{
		shared: &shared{
			sink: sink,
			name: name,
			refs: 1,
		},
	}
}

// NewReference returns another handle on the same sink.
// Returns ErrClosed if this handle was closed or the sink is gone.
func (r *Reference) NewReference() (*Reference, error) {
	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || r.closed.Load() {
		return nil, fmt.Errorf("new reference to %s: %w", s.name, ErrClosed)
	}

	s.refs++
	return &Reference{shared: s}, nil
}

// Write writes p to the sink. Writes from all references are serialized.
func (r *Reference) Write(p []byte) (int, error) {
	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || r.closed.Load() {
		return 0, ErrClosed
	}
	return s.sink.Write(p)
}

// Flush forwards to the sink while it is open and is a no-op afterwards.
func (r *Reference) Flush() error {
	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	return s.sink.Flush()
}

// Close releases this handle. When it was the last live handle the sink is
// flushed and closed. Closing an already closed handle is a no-op.
func (r *Reference) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs--
	if s.refs > 0 || s.closed {
		return nil
	}

	s.closed = true
	flushErr := s.sink.Flush()
	closeErr := s.sink.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return nil
}

// Name returns the name the sink was created with.
func (r *Reference) Name() string {
	return r.shared.name
}

// Refs returns the number of live references on the sink.
func (r *Reference) Refs() int {
	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Closed reports whether this handle has been closed.
func (r *Reference) Closed() bool {
	return r.closed.Load()
}

// SinkClosed reports whether the underlying sink has been physically closed.
func (r *Reference) SinkClosed() bool {
	s := r.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SameSink reports whether both references share one sink.
func (r *Reference) SameSink(other *Reference) bool {
	return other != nil && r.shared == other.shared
}

// SinkKey returns a comparable value identifying the underlying sink, for
// deduplicating references that share one.
func (r *Reference) SinkKey() any {
	return r.shared
}
