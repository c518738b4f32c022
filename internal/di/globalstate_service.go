package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/michsien/buck/internal/globalstate"
	"github.com/michsien/buck/internal/handler"
	"github.com/michsien/buck/internal/routing"
)

// GlobalStateService owns the logging state manager for the container's
// lifetime. Container shutdown runs the manager's sweep.
type GlobalStateService struct {
	Manager *globalstate.Manager
	cfgSvc  *ConfigService
}

// NewGlobalState creates the manager, opening the launch log under the
// configured log root.
func NewGlobalState(i do.Injector) (*GlobalStateService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	m, err := globalstate.New(
		globalstate.WithLogRoot(cfgSvc.Get().Logging.GetLogRoot()),
		globalstate.WithLogger(*loggerSvc.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create global state: %w", err)
	}

	return &GlobalStateService{Manager: m, cfgSvc: cfgSvc}, nil
}

// WorkerLogger builds a routed logger for worker. Console and file levels
// follow hot-reloaded config.
func (s *GlobalStateService) WorkerLogger(worker routing.WorkerID) zerolog.Logger {
	return handler.NewLogger(s.cfgSvc.Get().Logging, s.Manager, worker,
		handler.WithConsoleLevel(s.cfgSvc.ConsoleLevel),
		handler.WithFileLevel(s.cfgSvc.FileLevel),
	)
}

// Shutdown implements do.ShutdownerWithError by sweeping the global state.
func (s *GlobalStateService) Shutdown() error {
	return s.Manager.Shutdown()
}
