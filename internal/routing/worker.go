package routing

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// WorkerID identifies a worker goroutine. Go has no thread identity, so
// workers are numbered explicitly and carry their ID in a context.
type WorkerID uint64

// String returns the decimal form used in log fields.
func (w WorkerID) String() string {
	return strconv.FormatUint(uint64(w), 10)
}

var lastWorkerID atomic.Uint64

// NextWorkerID allocates a process-unique WorkerID.
func NextWorkerID() WorkerID {
	return WorkerID(lastWorkerID.Add(1))
}

type workerCtxKey struct{}

// WithWorker returns a context carrying the worker ID.
func WithWorker(ctx context.Context, worker WorkerID) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, worker)
}

// WorkerFromContext returns the worker ID stored by WithWorker.
func WorkerFromContext(ctx context.Context) mo.Option[WorkerID] {
	if worker, ok := ctx.Value(workerCtxKey{}).(WorkerID); ok {
		return mo.Some(worker)
	}
	return mo.None[WorkerID]()
}

// WorkerRegistry maps workers to the command invocation they are running.
// A worker maps to at most one command at a time.
type WorkerRegistry struct {
	commands sync.Map // WorkerID -> string
}

// NewWorkerRegistry creates an empty registry.
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{}
}

// Lookup returns the command ID the worker is attributed to.
func (r *WorkerRegistry) Lookup(worker WorkerID) mo.Option[string] {
	if v, ok := r.commands.Load(worker); ok {
		return mo.Some(v.(string))
	}
	return mo.None[string]()
}

// RegisterIfAbsent attributes the worker to commandID unless it is already
// attributed to some command. Returns the command the worker ends up with and
// whether this call stored it.
func (r *WorkerRegistry) RegisterIfAbsent(worker WorkerID, commandID string) (string, bool) {
	actual, loaded := r.commands.LoadOrStore(worker, commandID)
	return actual.(string), !loaded
}

// RegisterOrReplace attributes the worker to commandID, replacing any
// previous attribution. Worker pools call this before reusing a worker.
func (r *WorkerRegistry) RegisterOrReplace(worker WorkerID, commandID string) {
	r.commands.Store(worker, commandID)
}

// UnregisterAllFor removes every worker currently attributed to commandID and
// returns how many were removed.
//
// The key set is snapshotted first and each entry is removed only if it still
// maps to commandID, so a worker re-bound to another command during the scan
// keeps its new mapping.
func (r *WorkerRegistry) UnregisterAllFor(commandID string) int {
	removed := 0
	for _, entry := range r.snapshot() {
		if r.commands.CompareAndDelete(entry.Key, commandID) {
			removed++
		}
	}
	return removed
}

// Workers returns the workers attributed to commandID at the time of the call.
func (r *WorkerRegistry) Workers(commandID string) []WorkerID {
	return lo.FilterMap(r.snapshot(), func(e lo.Entry[WorkerID, string], _ int) (WorkerID, bool) {
		return e.Key, e.Value == commandID
	})
}

// Len returns the number of attributed workers.
func (r *WorkerRegistry) Len() int {
	return len(r.snapshot())
}

func (r *WorkerRegistry) snapshot() []lo.Entry[WorkerID, string] {
	var entries []lo.Entry[WorkerID, string]
	r.commands.Range(func(k, v any) bool {
		entries = append(entries, lo.Entry[WorkerID, string]{Key: k.(WorkerID), Value: v.(string)})
		return true
	})
	return entries
}
