package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/michsien/buck/internal/config"
	"github.com/michsien/buck/internal/routing"
)

// Views is the slice of the global state a worker logger reads from.
// *globalstate.Manager satisfies it.
type Views interface {
	ConsoleView() routing.ConsoleView
	LogFileView() routing.LogFileView
}

// Option configures NewLogger.
type Option func(*loggerOptions)

type loggerOptions struct {
	consoleLevel LevelFunc
	fileLevel    LevelFunc
}

// WithConsoleLevel overrides the default console threshold, typically with a
// function that reads hot-reloaded config.
func WithConsoleLevel(fn LevelFunc) Option {
	return func(o *loggerOptions) {
		o.consoleLevel = fn
	}
}

// WithFileLevel overrides the log-file threshold.
func WithFileLevel(fn LevelFunc) Option {
	return func(o *loggerOptions) {
		o.fileLevel = fn
	}
}

// NewLogger creates the logger a worker uses while running commands.
// Filtering happens in the handlers, so the logger itself passes every level.
func NewLogger(cfg config.LoggingConfig, views Views, worker routing.WorkerID, opts ...Option) zerolog.Logger {
	o := loggerOptions{
		consoleLevel: FixedLevel(cfg.ParseConsoleLevel()),
		fileLevel:    FixedLevel(cfg.ParseLevel()),
	}
	for _, opt := range opts {
		opt(&o)
	}

	console := NewConsoleHandler(views.ConsoleView(), worker, o.consoleLevel, usePrettyConsole(cfg))
	files := NewLogFileHandler(views.LogFileView(), worker, o.fileLevel)

	return zerolog.New(zerolog.MultiLevelWriter(console, files)).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("worker", worker.String()).
		Logger()
}

// usePrettyConsole decides pretty output for routed consoles. Their streams
// are arbitrary writers, so terminal detection does not apply.
func usePrettyConsole(cfg config.LoggingConfig) bool {
	return cfg.Pretty || cfg.Format == config.FormatPretty
}

// NewProcessLogger creates the process-level diagnostic logger from
// LoggingConfig. It is installed as the global zerolog logger.
// The returned closer releases the output file; it does nothing for the
// standard streams.
func NewProcessLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var output io.Writer = outputFile
	if shouldUsePretty(cfg, outputFile) {
		output = buildConsoleWriter(outputFile, false)
	}

	logger := zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()
	return logger, outputCloser(outputFile), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func outputCloser(f *os.File) io.Closer {
	if f == os.Stderr || f == os.Stdout {
		return nopCloser{}
	}
	return f
}

// selectOutput returns the file handle for the given output config.
func selectOutput(outputCfg string) (*os.File, error) {
	switch outputCfg {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(filepath.Clean(outputCfg), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	}
}

// shouldUsePretty determines if pretty console output should be used.
func shouldUsePretty(cfg config.LoggingConfig, outputFile *os.File) bool {
	if cfg.Pretty {
		return true
	}

	switch cfg.Format {
	case config.FormatPretty:
		return true
	case config.FormatJSON:
		return false
	default:
		// Auto-detect terminal
		return isatty.IsTerminal(outputFile.Fd())
	}
}

func buildConsoleWriter(output io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             output,
		TimeFormat:      "15:04:05",
		NoColor:         noColor,
		FormatLevel:     formatLevel,
		FormatMessage:   formatMessage,
		FormatFieldName: formatFieldName,
		FormatFieldValue: func(i any) string {
			return fmt.Sprintf("%s", i)
		},
	}
}

var levelColors = map[string]string{
	"trace": "\033[90mTRC\033[0m", // Gray
	"debug": "\033[36mDBG\033[0m", // Cyan
	"info":  "\033[32mINF\033[0m", // Green
	"warn":  "\033[33mWRN\033[0m", // Yellow
	"error": "\033[31mERR\033[0m", // Red
	"fatal": "\033[35mFTL\033[0m", // Magenta
	"panic": "\033[35mPNC\033[0m", // Magenta
}

func formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}
	if colored, exists := levelColors[levelStr]; exists {
		return colored
	}
	return levelStr
}

func formatMessage(i any) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("-> %s", i)
}

func formatFieldName(i any) string {
	return fmt.Sprintf("\033[2m%s=\033[0m", i)
}
