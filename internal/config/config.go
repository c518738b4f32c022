// Package config provides configuration loading, validation and hot reload
// for buck.
package config

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/michsien/buck/internal/invocation"
)

// Log level constants.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log format constants.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Config represents the complete buck configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Workers WorkerConfig  `yaml:"workers" toml:"workers"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level" toml:"level"`                 // log file level: trace, debug, info, warn, error
	ConsoleLevel string `yaml:"console_level" toml:"console_level"` // default console level
	Format       string `yaml:"format" toml:"format"`               // json, console, pretty
	Output       string `yaml:"output" toml:"output"`               // process logger: stdout, stderr, or file path
	LogRoot      string `yaml:"log_root" toml:"log_root"`           // root of per-invocation log directories
	Verbosity    string `yaml:"verbosity" toml:"verbosity"`         // silent, binary_outputs, compact, standard_information, all
	Pretty       bool   `yaml:"pretty" toml:"pretty"`               // force colored console output
}

// WorkerConfig defines the worker pool used to run a command.
type WorkerConfig struct {
	Count     int `yaml:"count" toml:"count"`           // number of workers (default: 4)
	QueueSize int `yaml:"queue_size" toml:"queue_size"` // pending task buffer (default: 2x count)
}

// ParseLevel converts the log file level to a zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	return parseLevel(l.Level, zerolog.InfoLevel)
}

// ParseConsoleLevel converts the console level to a zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseConsoleLevel() zerolog.Level {
	return parseLevel(l.ConsoleLevel, zerolog.InfoLevel)
}

func parseLevel(s string, fallback zerolog.Level) zerolog.Level {
	switch strings.ToLower(s) {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return fallback
	}
}

// ParseVerbosity returns the configured console verbosity.
// Invalid values fall back to standard information; Validate reports them.
func (l *LoggingConfig) ParseVerbosity() invocation.Verbosity {
	v, err := invocation.ParseVerbosity(l.Verbosity)
	if err != nil {
		return invocation.VerbosityStandardInformation
	}
	return v
}

// GetLogRoot returns the log root with default fallback.
func (l *LoggingConfig) GetLogRoot() string {
	if l.LogRoot == "" {
		return invocation.DefaultLogRoot
	}
	return l.LogRoot
}

// GetEffectiveCount returns the worker count with default fallback.
func (w *WorkerConfig) GetEffectiveCount() int {
	if w.Count <= 0 {
		return 4
	}
	return w.Count
}

// GetQueueSizeOption returns the queue size as an Option.
// Returns None if QueueSize is not set.
func (w *WorkerConfig) GetQueueSizeOption() mo.Option[int] {
	if w.QueueSize <= 0 {
		return mo.None[int]()
	}
	return mo.Some(w.QueueSize)
}

// GetEffectiveQueueSize returns the queue size, defaulting to twice the worker count.
func (w *WorkerConfig) GetEffectiveQueueSize() int {
	return w.GetQueueSizeOption().OrElse(2 * w.GetEffectiveCount())
}

// EnableVerboseConsole turns on full console detail.
// Used by the --verbose CLI flag.
func (l *LoggingConfig) EnableVerboseConsole() {
	l.ConsoleLevel = LevelTrace
	l.Verbosity = invocation.VerbosityAll.String()
}
