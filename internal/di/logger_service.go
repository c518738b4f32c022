package di

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/michsien/buck/internal/handler"
)

// LoggerService wraps the process-level diagnostic logger.
type LoggerService struct {
	Logger *zerolog.Logger
	output io.Closer
}

// NewLogger creates the process logger from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, output, err := handler.NewProcessLogger(cfgSvc.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &LoggerService{Logger: &logger, output: output}, nil
}

// Shutdown closes the logger's output file. It implements do.ShutdownerWithError.
func (s *LoggerService) Shutdown() error {
	return s.output.Close()
}
