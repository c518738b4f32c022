// Package routing holds the concurrent tables that decide where a log record
// goes: which invocation a worker belongs to, which console stream that
// invocation prints to, and which log file it appends to.
//
// The tables are safe for concurrent use without external locking. Lookups
// that find nothing return mo.None rather than an error.
package routing

import "errors"

// Routing errors.
var (
	// ErrStartup is returned when the default log destination cannot be
	// opened. Without it no log record has anywhere to go.
	ErrStartup = errors.New("routing: cannot open default log destination")

	// ErrNoDefault is returned by Attach before any default writer exists.
	ErrNoDefault = errors.New("routing: no default log writer")

	// ErrDrained is returned by rotations and attaches after Drain. The
	// table is being shut down and must not open new files.
	ErrDrained = errors.New("routing: log file routes drained")

	// ErrConsoleClosed is returned when writing to a console writer after the
	// shutdown sweep closed it.
	ErrConsoleClosed = errors.New("routing: console writer is closed")
)
