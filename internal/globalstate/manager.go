// Package globalstate coordinates the process-wide log routing state.
//
// A Manager owns the worker, console and log-file routing tables. Callers
// starting a command use Setup to register the invocation and Close the
// returned Teardown when it ends. Logging handlers only ever see the
// read-only views returned by WorkerLookup, ConsoleView and LogFileView.
package globalstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/michsien/buck/internal/invocation"
	"github.com/michsien/buck/internal/routing"
)

var (
	// ErrStartup is returned when no default log destination can be opened.
	ErrStartup = routing.ErrStartup

	// ErrShutdown is returned by Setup after Shutdown has run.
	ErrShutdown = errors.New("globalstate: manager is shut down")
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger  zerolog.Logger
	logRoot string
}

// WithLogRoot sets the directory under which invocation log directories live.
func WithLogRoot(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.logRoot = dir
		}
	}
}

// WithLogger sets the logger for the manager's own diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Request describes the invocation to set up.
type Request struct {
	// Console receives the invocation's console output while it is active.
	Console io.Writer
	// OriginalConsole replaces Console at teardown.
	OriginalConsole io.Writer
	Info            invocation.Info
	Verbosity       invocation.Verbosity
}

// Manager owns the routing tables for the whole process.
// All methods are safe for concurrent use.
type Manager struct {
	workers  *routing.WorkerRegistry
	console  *routing.ConsoleRoutes
	files    *routing.LogFileRoutes
	logger   zerolog.Logger
	logRoot  string
	shutdown atomic.Bool
}

// New creates a Manager and immediately opens a default log file for a
// synthetic launch invocation. The error wraps ErrStartup if that fails.
func New(opts ...Option) (*Manager, error) {
	o := options{
		logRoot: invocation.DefaultLogRoot,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		workers: routing.NewWorkerRegistry(),
		console: routing.NewConsoleRoutes(),
		files:   routing.NewLogFileRoutes(o.logger),
		logger:  o.logger,
		logRoot: o.logRoot,
	}

	launch := invocation.Launch(o.logRoot)
	if _, err := m.files.SetDefault(launch.LogFilePath()); err != nil {
		return nil, fmt.Errorf("globalstate: %w", err)
	}

	return m, nil
}

// LogRoot returns the configured log root.
func (m *Manager) LogRoot() string {
	return m.logRoot
}

// Setup registers an invocation in every routing table and returns the
// Teardown that reverses it. The calling worker is taken from ctx; if ctx
// carries none a new WorkerID is allocated, see Teardown.Worker.
//
// Failing to open the invocation's log file is returned as an error wrapping
// ErrStartup. Failing to create the log directory is only logged.
func (m *Manager) Setup(ctx context.Context, req Request) (*Teardown, error) {
	if m.shutdown.Load() {
		return nil, ErrShutdown
	}

	commandID := req.Info.CommandID
	worker, ok := routing.WorkerFromContext(ctx).Get()
	if !ok {
		worker = routing.NextWorkerID()
	}

	if _, err := m.files.AttachPath(commandID, req.Info.LogFilePath()); err != nil {
		// Shutdown drained the files after the check above.
		if errors.Is(err, routing.ErrDrained) {
			return nil, ErrShutdown
		}
		return nil, fmt.Errorf("globalstate: setup %s: %w", commandID, err)
	}

	if current, stored := m.workers.RegisterIfAbsent(worker, commandID); !stored {
		m.logger.Debug().
			Str("command_id", commandID).
			Str("worker_id", worker.String()).
			Str("current_command_id", current).
			Msg("worker already attributed to another command")
	}

	m.console.SetWriterAndLevel(commandID, req.Console, req.Verbosity)

	logDir := req.Info.LogDirectoryPath()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		m.logger.Warn().
			Err(err).
			Str("command_id", commandID).
			Str("path", logDir).
			Msg("failed to create per command log directory")
	}

	m.logger.Debug().
		Str("command_id", commandID).
		Str("worker_id", worker.String()).
		Str("verbosity", req.Verbosity.String()).
		Msg("log routing set up")

	t := &Teardown{
		manager:   m,
		commandID: commandID,
		original:  req.OriginalConsole,
		worker:    worker,
	}
	t.state.Store(int32(StateActive))
	return t, nil
}

// teardown reverses Setup. Every step runs even if an earlier one fails.
func (m *Manager) teardown(commandID string, original io.Writer) error {
	var errs []error

	if err := m.files.Detach(commandID); err != nil {
		m.logger.Error().Err(err).Str("command_id", commandID).Msg("failed to close command log writer")
		errs = append(errs, err)
	}

	if err := m.console.RevertToFallback(commandID, original); err != nil {
		m.logger.Error().Err(err).Str("command_id", commandID).Msg("failed to flush command console writer")
		errs = append(errs, err)
	}

	removed := m.workers.UnregisterAllFor(commandID)

	m.logger.Debug().
		Str("command_id", commandID).
		Int("workers_released", removed).
		Msg("log routing torn down")

	return errors.Join(errs...)
}

// Shutdown flushes and closes every writer still registered in the console
// and log-file tables. Failures are logged and joined; the sweep never stops
// early. Later calls are no-ops.
func (m *Manager) Shutdown() error {
	if !m.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for w := range m.console.AllWriters() {
		if err := w.Close(); err != nil {
			m.logger.Error().Err(err).Msg("failed to close console writer")
			errs = append(errs, err)
		}
	}

	for _, ref := range m.files.Drain() {
		if err := ref.Close(); err != nil {
			m.logger.Error().Err(err).Str("path", ref.Name()).Msg("failed to close log writer")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
