package routing

import (
	"io"
	"iter"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Read-only capabilities handed to logging consumers. Each exposes only what
// one consumer needs, so handlers cannot change routing.

// Writer is the part of a routed writer that consumers may use.
type Writer interface {
	io.Writer
	Flush() error
}

// WorkerLookup resolves the command a worker is running.
type WorkerLookup interface {
	CommandID(worker WorkerID) mo.Option[string]
}

// WorkerRegistrar lets a worker pool bind a worker to a command before
// reusing it. It is the only mutation handed out beyond setup and teardown.
type WorkerRegistrar interface {
	WorkerLookup
	Register(worker WorkerID, commandID string)
}

// ConsoleView is what a console handler needs.
type ConsoleView interface {
	WorkerLookup
	Writer(commandID string) mo.Option[Writer]
	Level(commandID string) mo.Option[zerolog.Level]
	AllWriters() iter.Seq[Writer]
}

// LogFileView is what a log-file handler needs.
type LogFileView interface {
	WorkerLookup
	// Writer is the log file attached to commandID, if any.
	Writer(commandID string) mo.Option[Writer]
	// AllWriters is every live log file, each sink once.
	AllWriters() iter.Seq[Writer]
	// Writers is Writer(commandID) when present, AllWriters otherwise.
	Writers(commandID mo.Option[string]) iter.Seq[Writer]
}
