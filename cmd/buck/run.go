package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/michsien/buck/internal/config"
	"github.com/michsien/buck/internal/di"
	"github.com/michsien/buck/internal/globalstate"
	"github.com/michsien/buck/internal/invocation"
	"github.com/michsien/buck/internal/lifecycle"
	"github.com/michsien/buck/internal/routing"
	"github.com/michsien/buck/internal/workerpool"
)

type runOptions struct {
	configFile *string
	verbosity  string
	workers    int
	tasks      int
	verbose    bool
}

func newRunCmd(configFile *string) *cobra.Command {
	opts := &runOptions{configFile: configFile}

	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Run a command's tasks on the worker pool",
		Long: `Set up a new invocation for <command>, fan its tasks out to the worker pool,
and tear the invocation down when they finish. Console output goes to stderr;
the invocation's log file path is printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "number of workers (default from config)")
	cmd.Flags().StringVar(&opts.verbosity, "verbosity", "",
		"console verbosity: silent, binary_outputs, compact, standard_information, all")
	cmd.Flags().IntVar(&opts.tasks, "tasks", 8, "number of tasks to run")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print every log record to the console")
	return cmd
}

func runCommand(cmd *cobra.Command, command string, opts *runOptions) error {
	configPath := *opts.configFile
	if configPath == "" {
		configPath = findConfigFile()
	}

	container, err := di.NewContainer(configPath)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return err
	}
	defer func() {
		if err := container.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	if err := applyFlags(cfgSvc, opts); err != nil {
		return err
	}

	loggerSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		return err
	}
	prevLogger, prevContextLogger := log.Logger, zerolog.DefaultContextLogger
	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger
	// Restored before the container closes the logger's output file.
	defer func() {
		log.Logger = prevLogger
		zerolog.DefaultContextLogger = prevContextLogger
	}()

	gs, err := di.Invoke[*di.GlobalStateService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize log routing")
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sub := lifecycle.SweepOnSignal(ctx, lifecycle.SweeperFunc(func() error {
		cancel()
		return gs.Manager.Shutdown()
	}), log.Logger)
	defer sub.Unsubscribe()

	cfgSvc.StartWatching(ctx)

	cfg := cfgSvc.Get()
	info := invocation.New(command, cfg.Logging.GetLogRoot())
	coordinator := routing.NextWorkerID()
	console := cmd.ErrOrStderr()

	td, err := gs.Manager.Setup(routing.WithWorker(ctx, coordinator), globalstate.Request{
		Console:         console,
		OriginalConsole: console,
		Info:            info,
		Verbosity:       cfg.Logging.ParseVerbosity(),
	})
	if err != nil {
		return fmt.Errorf("set up invocation: %w", err)
	}
	defer func() {
		if err := td.Close(); err != nil {
			log.Error().Err(err).Str("command_id", info.CommandID).Msg("teardown error")
		}
	}()

	logger := gs.WorkerLogger(coordinator).With().Str("command_id", info.CommandID).Logger()
	logger.Info().
		Str("command", command).
		Str("build_id", info.BuildID).
		Int("workers", cfg.Workers.GetEffectiveCount()).
		Int("tasks", opts.tasks).
		Msg("invocation started")

	runErr := runTasks(ctx, gs, info, cfg.Workers, opts.tasks)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("invocation failed")
	} else {
		logger.Info().Msg("invocation finished")
	}

	fmt.Fprintln(cmd.OutOrStdout(), info.LogFilePath())
	return runErr
}

func runTasks(ctx context.Context, gs *di.GlobalStateService, info invocation.Info, wc config.WorkerConfig, tasks int) error {
	pool, err := workerpool.New(ctx, workerpool.Config{
		Workers:   wc.GetEffectiveCount(),
		QueueSize: wc.GetEffectiveQueueSize(),
	}, gs.Manager.WorkerRegistrar(), gs.WorkerLogger)
	if err != nil {
		return err
	}

	var submitErr error
	for i := range tasks {
		err := pool.Submit(ctx, info.CommandID, func(ctx context.Context, logger zerolog.Logger) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Debug().Int("task", i).Msg("task started")
			logger.Info().Int("task", i).Str("command", info.SubCommand).Msg("task finished")
			return nil
		})
		if err != nil {
			submitErr = err
			break
		}
	}

	return errors.Join(submitErr, pool.Close())
}

func applyFlags(cfgSvc *di.ConfigService, opts *runOptions) error {
	if opts.verbosity != "" {
		if _, err := invocation.ParseVerbosity(opts.verbosity); err != nil {
			return err
		}
	}
	if opts.workers < 0 {
		return fmt.Errorf("--workers must be >= 0, got %d", opts.workers)
	}

	cfgSvc.Override(func(cfg *config.Config) {
		if opts.verbosity != "" {
			cfg.Logging.Verbosity = opts.verbosity
		}
		if opts.workers > 0 {
			cfg.Workers.Count = opts.workers
		}
		if opts.verbose {
			cfg.Logging.EnableVerboseConsole()
		}
	})
	return nil
}

// findConfigFile searches for buck.yaml or buck.toml in default locations.
// Returns "" when none exists, which selects built-in defaults.
func findConfigFile() string {
	candidates := []string{defaultConfigFile, "buck.toml"}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dir := filepath.Join(home, ".config", "buck")
		candidates = append(candidates, filepath.Join(dir, defaultConfigFile), filepath.Join(dir, "buck.toml"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
