package routing

import (
	"io"
	"iter"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/michsien/buck/internal/invocation"
)

// ConsoleWriter serializes writes from many workers onto one console stream.
// Closing it flushes and stops further writes; the stream itself belongs to
// the caller that supplied it and is never closed here.
type ConsoleWriter struct {
	out    io.Writer
	mu     sync.Mutex
	closed bool
}

// NewConsoleWriter wraps out.
func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	return &ConsoleWriter{out: out}
}

// Write writes p to the console stream.
func (c *ConsoleWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrConsoleClosed
	}
	return c.out.Write(p)
}

// Flush flushes the stream if it buffers.
func (c *ConsoleWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	return flushStream(c.out)
}

// Close flushes the stream and rejects later writes. Repeated calls are no-ops.
func (c *ConsoleWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return flushStream(c.out)
}

// Out returns the wrapped stream.
func (c *ConsoleWriter) Out() io.Writer {
	return c.out
}

func flushStream(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// ConsoleRoutes maps command IDs to console writers and optional level overrides.
type ConsoleRoutes struct {
	writers sync.Map // string -> *ConsoleWriter
	levels  sync.Map // string -> zerolog.Level
}

// NewConsoleRoutes creates an empty table.
func NewConsoleRoutes() *ConsoleRoutes {
	return &ConsoleRoutes{}
}

// SetWriterAndLevel installs the console stream for commandID. A level
// override is stored only for maximal verbosity; otherwise consumers use
// their default console level.
func (c *ConsoleRoutes) SetWriterAndLevel(commandID string, out io.Writer, verbosity invocation.Verbosity) {
	c.writers.Store(commandID, NewConsoleWriter(out))
	if verbosity.IsMaximal() {
		c.levels.Store(commandID, zerolog.TraceLevel)
	}
}

// Writer returns the console writer for commandID.
func (c *ConsoleRoutes) Writer(commandID string) mo.Option[*ConsoleWriter] {
	if v, ok := c.writers.Load(commandID); ok {
		return mo.Some(v.(*ConsoleWriter))
	}
	return mo.None[*ConsoleWriter]()
}

// Level returns the level override for commandID.
func (c *ConsoleRoutes) Level(commandID string) mo.Option[zerolog.Level] {
	if v, ok := c.levels.Load(commandID); ok {
		return mo.Some(v.(zerolog.Level))
	}
	return mo.None[zerolog.Level]()
}

// AllWriters returns the console writers registered at the time of the call.
// The sequence can be ranged over more than once.
func (c *ConsoleRoutes) AllWriters() iter.Seq[*ConsoleWriter] {
	var snapshot []*ConsoleWriter
	c.writers.Range(func(_, v any) bool {
		snapshot = append(snapshot, v.(*ConsoleWriter))
		return true
	})
	return slices.Values(snapshot)
}

// RevertToFallback points commandID at fallback and drops its level override.
// The entry is replaced rather than deleted so a log call racing with
// teardown still finds a usable writer. The replaced writer is flushed.
func (c *ConsoleRoutes) RevertToFallback(commandID string, fallback io.Writer) error {
	prev, loaded := c.writers.Swap(commandID, NewConsoleWriter(fallback))
	c.levels.Delete(commandID)

	if loaded {
		return prev.(*ConsoleWriter).Flush()
	}
	return nil
}
