package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsEmpty(t *testing.T) {
	t.Parallel()

	var cfg Config
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Logging: LoggingConfig{
			Level:        "loud",
			ConsoleLevel: "quiet",
			Format:       "xml",
			Verbosity:    "chatty",
		},
		Workers: WorkerConfig{Count: -2, QueueSize: -1},
	}

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"logging.level",
		"logging.console_level",
		"logging.format",
		"logging.verbosity",
		"workers.count",
		"workers.queue_size",
	}, verr.Keys())
	assert.Contains(t, err.Error(), "config: 6 invalid setting(s)")
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	e := &ValidationError{}
	e.reject("workers.count", "must be >= 0, got %d", -1)
	e.reject("logging.format", "must be one of json, console, pretty; got %q", "xml")

	assert.Equal(t,
		`config: 2 invalid setting(s): workers.count: must be >= 0, got -1; logging.format: must be one of json, console, pretty; got "xml"`,
		e.Error())
}
