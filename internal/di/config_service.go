package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/michsien/buck/internal/config"
)

// ConfigService holds the live configuration. Reads go through an atomic
// pointer so a reload never blocks loggers reading the console level.
type ConfigService struct {
	runtime   *config.Runtime
	watcher   *config.Watcher
	path      string
	overrides []func(*config.Config)
	mu        sync.Mutex
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the config file path, or "" when running on defaults.
func (c *ConfigService) Path() string {
	return c.path
}

// ConsoleLevel returns the current default console level.
func (c *ConfigService) ConsoleLevel() zerolog.Level {
	return c.Get().Logging.ParseConsoleLevel()
}

// FileLevel returns the current log file level.
func (c *ConfigService) FileLevel() zerolog.Level {
	return c.Get().Logging.ParseLevel()
}

// Override applies fn to a copy of the current config and stores the copy.
// Used for command-line flags that take precedence over the file; fn is
// applied again after every reload.
func (c *ConfigService) Override(fn func(*config.Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overrides = append(c.overrides, fn)
	next := *c.Get()
	fn(&next)
	c.runtime.Store(&next)
}

func (c *ConfigService) reload(newCfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, fn := range c.overrides {
		fn(newCfg)
	}
	c.runtime.Store(newCfg)
}

// StartWatching reloads the config file in the background until ctx ends.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		c.reload(newCfg)
		log.Info().
			Str("path", c.path).
			Str("console_level", c.ConsoleLevel().String()).
			Msg("config hot-reloaded")
		return nil
	})

	go func() {
		if err := c.watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Debug().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.ShutdownerWithError for watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads the configuration from the config path and creates a watcher.
// The watcher is created but not started; call StartWatching after container init.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	if path == "" {
		return &ConfigService{runtime: config.NewRuntime(config.Default())}, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	svc := &ConfigService{runtime: config.NewRuntime(cfg), path: path}

	// Hot reload is optional; run without it if the watcher cannot start.
	watcher, err := config.NewWatcher(path, config.WithWatcherLogger(log.Logger))
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}
