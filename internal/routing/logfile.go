package routing

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/michsien/buck/internal/refwriter"
)

// defaultEntry is the current default writer and the path it was opened at.
type defaultEntry struct {
	ref  *refwriter.Reference
	path string
}

// LogFileRoutes maps command IDs to references on log-file writers, plus the
// default writer used before any invocation has registered.
//
// Rotations and attaches are serialized with each other; Resolve and Detach
// never wait on them.
type LogFileRoutes struct {
	current  atomic.Pointer[defaultEntry]
	writers  sync.Map // string -> *refwriter.Reference
	logger   zerolog.Logger
	rotateMu sync.Mutex
	drained  bool // guarded by rotateMu
}

// NewLogFileRoutes creates an empty table. Diagnostics go to logger.
func NewLogFileRoutes(logger zerolog.Logger) *LogFileRoutes {
	return &LogFileRoutes{logger: logger}
}

// SetDefault opens path and installs it as the default writer. The previous
// default is flushed and closed after the swap; references other owners took
// from it stay valid until they are closed.
func (r *LogFileRoutes) SetDefault(path string) (*refwriter.Reference, error) {
	r.rotateMu.Lock()
	defer r.rotateMu.Unlock()
	return r.rotateLocked(path)
}

func (r *LogFileRoutes) rotateLocked(path string) (*refwriter.Reference, error) {
	if r.drained {
		return nil, ErrDrained
	}
	path = filepath.Clean(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Opening the file below reports the real failure, if any.
		r.logger.Warn().Err(err).Str("path", dir).Msg("failed to create log directory")
	}

	ref, err := refwriter.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	prev := r.current.Swap(&defaultEntry{ref: ref, path: path})
	if prev != nil {
		if err := prev.ref.Close(); err != nil {
			r.logger.Error().Err(err).Str("path", prev.path).Msg("failed to close previous default log writer")
		}
	}

	r.logger.Debug().Str("path", path).Msg("rotated default log writer")
	return ref, nil
}

// DefaultPath returns the path of the current default writer.
func (r *LogFileRoutes) DefaultPath() mo.Option[string] {
	if cur := r.current.Load(); cur != nil {
		return mo.Some(cur.path)
	}
	return mo.None[string]()
}

// Default returns the current default writer.
func (r *LogFileRoutes) Default() mo.Option[*refwriter.Reference] {
	if cur := r.current.Load(); cur != nil {
		return mo.Some(cur.ref)
	}
	return mo.None[*refwriter.Reference]()
}

// Attach stores a new reference on the current default writer under commandID.
func (r *LogFileRoutes) Attach(commandID string) (*refwriter.Reference, error) {
	r.rotateMu.Lock()
	defer r.rotateMu.Unlock()
	return r.attachLocked(commandID)
}

// AttachPath rotates the default to path if it is not already the default,
// then attaches commandID to it. The returned reference always writes to path.
func (r *LogFileRoutes) AttachPath(commandID, path string) (*refwriter.Reference, error) {
	r.rotateMu.Lock()
	defer r.rotateMu.Unlock()

	if cur := r.current.Load(); cur == nil || cur.path != filepath.Clean(path) {
		if _, err := r.rotateLocked(path); err != nil {
			return nil, err
		}
	}
	return r.attachLocked(commandID)
}

func (r *LogFileRoutes) attachLocked(commandID string) (*refwriter.Reference, error) {
	if r.drained {
		return nil, ErrDrained
	}
	cur := r.current.Load()
	if cur == nil {
		return nil, ErrNoDefault
	}

	ref, err := cur.ref.NewReference()
	if err != nil {
		return nil, err
	}

	if prev, loaded := r.writers.Swap(commandID, ref); loaded {
		if err := prev.(*refwriter.Reference).Close(); err != nil {
			r.logger.Error().Err(err).Str("command_id", commandID).Msg("failed to close replaced log writer")
		}
	}
	return ref, nil
}

// Detach removes and closes the reference stored under commandID. If other
// references keep the sink open, it is flushed so the command's records are
// on disk when Detach returns. Detaching an unknown command is a no-op.
func (r *LogFileRoutes) Detach(commandID string) error {
	v, ok := r.writers.LoadAndDelete(commandID)
	if !ok {
		return nil
	}
	ref := v.(*refwriter.Reference)
	if err := ref.Close(); err != nil {
		return err
	}
	if ref.SinkClosed() {
		return nil
	}
	return ref.Flush()
}

// Writer returns the writer attached under commandID.
func (r *LogFileRoutes) Writer(commandID string) mo.Option[Writer] {
	if v, ok := r.writers.Load(commandID); ok {
		return mo.Some[Writer](logWriter{ref: v.(*refwriter.Reference)})
	}
	return mo.None[Writer]()
}

// AllWriters returns the default writer and every attached writer, taken at
// call time. References that share a sink are yielded once.
func (r *LogFileRoutes) AllWriters() iter.Seq[Writer] {
	refs := lo.UniqBy(r.snapshot(), func(ref *refwriter.Reference) any {
		return ref.SinkKey()
	})
	return slices.Values(lo.Map(refs, func(ref *refwriter.Reference, _ int) Writer {
		return logWriter{ref: ref}
	}))
}

// Resolve returns the writer for commandID. If commandID is absent or has no
// entry, it returns AllWriters instead so records from unattributed workers
// still reach every live destination.
func (r *LogFileRoutes) Resolve(commandID mo.Option[string]) iter.Seq[Writer] {
	if id, ok := commandID.Get(); ok {
		if w, ok := r.Writer(id).Get(); ok {
			return slices.Values([]Writer{w})
		}
	}
	return r.AllWriters()
}

// Drain removes every entry, including the default, and returns the removed
// references for the caller to close. Later rotations and attaches fail with
// ErrDrained.
func (r *LogFileRoutes) Drain() []*refwriter.Reference {
	r.rotateMu.Lock()
	defer r.rotateMu.Unlock()

	r.drained = true

	var drained []*refwriter.Reference
	if cur := r.current.Swap(nil); cur != nil {
		drained = append(drained, cur.ref)
	}
	r.writers.Range(func(k, _ any) bool {
		if v, ok := r.writers.LoadAndDelete(k); ok {
			drained = append(drained, v.(*refwriter.Reference))
		}
		return true
	})
	return drained
}

// snapshot returns the default writer followed by every per-command writer.
func (r *LogFileRoutes) snapshot() []*refwriter.Reference {
	var refs []*refwriter.Reference
	if cur := r.current.Load(); cur != nil {
		refs = append(refs, cur.ref)
	}
	r.writers.Range(func(_, v any) bool {
		refs = append(refs, v.(*refwriter.Reference))
		return true
	})
	return refs
}

// logWriter hides Close from consumers.
type logWriter struct {
	ref *refwriter.Reference
}

func (w logWriter) Write(p []byte) (int, error) {
	return w.ref.Write(p)
}

func (w logWriter) Flush() error {
	return w.ref.Flush()
}
