package di

import (
	"io"

	"github.com/michsien/buck/internal/config"
)

// GetWatcher returns the watcher for testing purposes.
func (c *ConfigService) GetWatcher() *config.Watcher {
	return c.watcher
}

// NewConfigServiceWithConfig creates a ConfigService with cfg and no watcher.
func NewConfigServiceWithConfig(cfg *config.Config) *ConfigService {
	return &ConfigService{runtime: config.NewRuntime(cfg)}
}

// Output returns the closer for the logger's output file.
func (s *LoggerService) Output() io.Closer {
	return s.output
}
