package config

import (
	"github.com/michsien/buck/internal/invocation"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":         true, // Empty defaults to info
	LevelTrace: true,
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":            true, // Empty defaults to json
	FormatJSON:    true,
	FormatConsole: true,
	"text":        true, // Alias for console
	FormatPretty:  true,
}

// Validate checks the configuration and returns a *ValidationError naming
// every invalid setting, or nil.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateLogging(&c.Logging, errs)
	validateWorkers(&c.Workers, errs)

	if len(errs.Settings) == 0 {
		return nil
	}
	return errs
}

func validateLogging(l *LoggingConfig, errs *ValidationError) {
	if !validLogLevels[l.Level] {
		errs.reject("logging.level", "must be one of trace, debug, info, warn, error; got %q", l.Level)
	}
	if !validLogLevels[l.ConsoleLevel] {
		errs.reject("logging.console_level", "must be one of trace, debug, info, warn, error; got %q", l.ConsoleLevel)
	}
	if !validLogFormats[l.Format] {
		errs.reject("logging.format", "must be one of json, console, pretty; got %q", l.Format)
	}
	if _, err := invocation.ParseVerbosity(l.Verbosity); err != nil {
		errs.reject("logging.verbosity", "%v", err)
	}
}

func validateWorkers(w *WorkerConfig, errs *ValidationError) {
	if w.Count < 0 {
		errs.reject("workers.count", "must be >= 0, got %d", w.Count)
	}
	if w.QueueSize < 0 {
		errs.reject("workers.queue_size", "must be >= 0, got %d", w.QueueSize)
	}
}
