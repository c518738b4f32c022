package globalstate

import (
	"iter"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/michsien/buck/internal/routing"
)

// WorkerLookup returns a lookup-only view of the worker registry.
func (m *Manager) WorkerLookup() routing.WorkerLookup {
	return workerLookup{workers: m.workers}
}

// WorkerRegistrar returns the hook worker pools use to rebind workers.
func (m *Manager) WorkerRegistrar() routing.WorkerRegistrar {
	return workerRegistrar{workerLookup: workerLookup{workers: m.workers}}
}

// ConsoleView returns the read-only view console handlers use.
func (m *Manager) ConsoleView() routing.ConsoleView {
	return consoleView{workerLookup: workerLookup{workers: m.workers}, console: m.console}
}

// LogFileView returns the read-only view log-file handlers use.
func (m *Manager) LogFileView() routing.LogFileView {
	return logFileView{workerLookup: workerLookup{workers: m.workers}, files: m.files}
}

type workerLookup struct {
	workers *routing.WorkerRegistry
}

func (v workerLookup) CommandID(worker routing.WorkerID) mo.Option[string] {
	return v.workers.Lookup(worker)
}

type workerRegistrar struct {
	workerLookup
}

func (v workerRegistrar) Register(worker routing.WorkerID, commandID string) {
	v.workers.RegisterOrReplace(worker, commandID)
}

type consoleView struct {
	console *routing.ConsoleRoutes
	workerLookup
}

func (v consoleView) Writer(commandID string) mo.Option[routing.Writer] {
	w, ok := v.console.Writer(commandID).Get()
	if !ok {
		return mo.None[routing.Writer]()
	}
	return mo.Some[routing.Writer](consoleOut{w: w})
}

func (v consoleView) Level(commandID string) mo.Option[zerolog.Level] {
	return v.console.Level(commandID)
}

func (v consoleView) AllWriters() iter.Seq[routing.Writer] {
	snapshot := v.console.AllWriters()
	return func(yield func(routing.Writer) bool) {
		for w := range snapshot {
			if !yield(consoleOut{w: w}) {
				return
			}
		}
	}
}

type logFileView struct {
	files *routing.LogFileRoutes
	workerLookup
}

func (v logFileView) Writer(commandID string) mo.Option[routing.Writer] {
	return v.files.Writer(commandID)
}

func (v logFileView) AllWriters() iter.Seq[routing.Writer] {
	return v.files.AllWriters()
}

func (v logFileView) Writers(commandID mo.Option[string]) iter.Seq[routing.Writer] {
	return v.files.Resolve(commandID)
}

// consoleOut hides Close from console consumers.
type consoleOut struct {
	w *routing.ConsoleWriter
}

func (c consoleOut) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c consoleOut) Flush() error {
	return c.w.Flush()
}

// Compile-time interface checks.
var (
	_ routing.WorkerRegistrar = workerRegistrar{}
	_ routing.ConsoleView     = consoleView{}
	_ routing.LogFileView     = logFileView{}
)
