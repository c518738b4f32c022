// Package handler turns zerolog records into routed writes. Each worker gets
// a logger whose output goes through the console and log-file views of the
// global state, so records land on the console and log file of whichever
// invocation the worker is running at the time of the write.
package handler

import (
	"errors"
	"iter"

	"github.com/rs/zerolog"

	"github.com/michsien/buck/internal/refwriter"
	"github.com/michsien/buck/internal/routing"
)

// LevelFunc reports the current default threshold. It is read on every
// record so hot-reloaded config takes effect without rebuilding loggers.
type LevelFunc func() zerolog.Level

// FixedLevel returns a LevelFunc that always reports level.
func FixedLevel(level zerolog.Level) LevelFunc {
	return func() zerolog.Level { return level }
}

// ConsoleHandler writes records to the console of the worker's invocation.
// Records from unattributed workers go to every live console.
type ConsoleHandler struct {
	view         routing.ConsoleView
	defaultLevel LevelFunc
	worker       routing.WorkerID
	pretty       bool
}

// NewConsoleHandler creates a console handler for worker.
func NewConsoleHandler(view routing.ConsoleView, worker routing.WorkerID, defaultLevel LevelFunc, pretty bool) *ConsoleHandler {
	return &ConsoleHandler{view: view, worker: worker, defaultLevel: defaultLevel, pretty: pretty}
}

// Write implements io.Writer for records without a level.
func (h *ConsoleHandler) Write(p []byte) (int, error) {
	return h.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (h *ConsoleHandler) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	commandID := h.view.CommandID(h.worker)

	threshold := h.defaultLevel()
	if id, ok := commandID.Get(); ok {
		threshold = h.view.Level(id).OrElse(threshold)
	}
	if level < threshold {
		return len(p), nil
	}

	if id, ok := commandID.Get(); ok {
		if w, ok := h.view.Writer(id).Get(); ok {
			return len(p), h.emit(w, p)
		}
	}

	var errs []error
	for w := range h.view.AllWriters() {
		errs = append(errs, h.emit(w, p))
	}
	return len(p), errors.Join(errs...)
}

func (h *ConsoleHandler) emit(w routing.Writer, p []byte) error {
	var err error
	if h.pretty {
		_, err = buildConsoleWriter(w, false).Write(p)
	} else {
		_, err = w.Write(p)
	}
	// Consoles closed by the shutdown sweep drop late records.
	if errors.Is(err, routing.ErrConsoleClosed) {
		return nil
	}
	return err
}

// LogFileHandler appends records to the log file of the worker's invocation.
type LogFileHandler struct {
	view   routing.LogFileView
	level  LevelFunc
	worker routing.WorkerID
}

// NewLogFileHandler creates a log-file handler for worker.
func NewLogFileHandler(view routing.LogFileView, worker routing.WorkerID, level LevelFunc) *LogFileHandler {
	return &LogFileHandler{view: view, worker: worker, level: level}
}

// Write implements io.Writer for records without a level.
func (h *LogFileHandler) Write(p []byte) (int, error) {
	return h.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter. A write to the command's log
// file that races with the invocation's teardown is retried against every
// live log file; the fan-out itself is never retried.
func (h *LogFileHandler) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < h.level() {
		return len(p), nil
	}

	if id, ok := h.view.CommandID(h.worker).Get(); ok {
		if w, ok := h.view.Writer(id).Get(); ok {
			_, err := w.Write(p)
			if !errors.Is(err, refwriter.ErrClosed) {
				return len(p), err
			}
		}
	}
	return len(p), writeAll(h.view.AllWriters(), p)
}

func writeAll(writers iter.Seq[routing.Writer], p []byte) error {
	var errs []error
	for w := range writers {
		if _, err := w.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
