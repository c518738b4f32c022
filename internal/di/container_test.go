package di_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michsien/buck/internal/config"
	"github.com/michsien/buck/internal/di"
	"github.com/michsien/buck/internal/globalstate"
	"github.com/michsien/buck/internal/invocation"
	"github.com/michsien/buck/internal/routing"
)

// shutdownContainer shuts down the container and logs any error (for use in t.Cleanup).
func shutdownContainer(t *testing.T, container *di.Container) {
	t.Helper()
	if err := container.Shutdown(); err != nil {
		t.Logf("container shutdown: %v", err)
	}
}

// createTempConfigFile writes a config whose log root lives in a temp dir.
func createTempConfigFile(t *testing.T) (path, logRoot string) {
	t.Helper()
	dir := t.TempDir()
	logRoot = filepath.Join(dir, "log")
	path = filepath.Join(dir, "buck.yaml")
	content := fmt.Sprintf(`
logging:
  level: debug
  console_level: info
  format: json
  output: %s
  log_root: %s
workers:
  count: 2
`, filepath.Join(dir, "daemon.log"), logRoot)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, logRoot
}

func TestNewContainer(t *testing.T) {
	t.Parallel()

	t.Run("creates container with valid config", func(t *testing.T) {
		t.Parallel()
		path, _ := createTempConfigFile(t)

		container, err := di.NewContainer(path)
		require.NoError(t, err)
		t.Cleanup(func() { shutdownContainer(t, container) })

		assert.NotNil(t, container.Injector())
	})

	t.Run("fails eagerly with missing config", func(t *testing.T) {
		t.Parallel()

		container, err := di.NewContainer("/nonexistent/buck.yaml")
		require.Error(t, err)
		assert.Nil(t, container)
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("empty path uses defaults", func(t *testing.T) {
		t.Parallel()

		container, err := di.NewContainer("")
		require.NoError(t, err)
		t.Cleanup(func() { shutdownContainer(t, container) })

		cfgSvc, err := di.Invoke[*di.ConfigService](container)
		require.NoError(t, err)
		assert.Empty(t, cfgSvc.Path())
		assert.Nil(t, cfgSvc.GetWatcher())
		assert.Equal(t, invocation.DefaultLogRoot, cfgSvc.Get().Logging.GetLogRoot())
	})
}

func TestContainerInvoke(t *testing.T) {
	t.Parallel()

	path, logRoot := createTempConfigFile(t)
	container, err := di.NewContainer(path)
	require.NoError(t, err)
	t.Cleanup(func() { shutdownContainer(t, container) })

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	assert.Equal(t, 2, cfgSvc.Get().Workers.Count)
	assert.NotNil(t, cfgSvc.GetWatcher())

	loggerSvc := di.MustInvoke[*di.LoggerService](container)
	assert.NotNil(t, loggerSvc.Logger)

	gs, err := di.Invoke[*di.GlobalStateService](container)
	require.NoError(t, err)
	assert.Equal(t, logRoot, gs.Manager.LogRoot())

	require.NoError(t, container.HealthCheck())
}

func TestContainerShutdownSweepsGlobalState(t *testing.T) {
	t.Parallel()

	path, logRoot := createTempConfigFile(t)
	container, err := di.NewContainer(path)
	require.NoError(t, err)

	gs := di.MustInvoke[*di.GlobalStateService](container)

	worker := routing.NextWorkerID()
	info := invocation.New("build", logRoot)
	console := &bytes.Buffer{}
	_, err = gs.Manager.Setup(routing.WithWorker(context.Background(), worker), globalstate.Request{
		Console:         console,
		OriginalConsole: &bytes.Buffer{},
		Info:            info,
	})
	require.NoError(t, err)

	logger := gs.WorkerLogger(worker)
	logger.Info().Msg("before shutdown")

	require.NoError(t, container.Shutdown())

	data, err := os.ReadFile(info.LogFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "before shutdown")
	assert.Contains(t, console.String(), "before shutdown")

	_, err = gs.Manager.Setup(context.Background(), globalstate.Request{Info: invocation.New("build", logRoot)})
	require.ErrorIs(t, err, globalstate.ErrShutdown)
}

func TestContainerShutdownClosesLoggerOutput(t *testing.T) {
	t.Parallel()

	path, _ := createTempConfigFile(t)
	container, err := di.NewContainer(path)
	require.NoError(t, err)

	loggerSvc := di.MustInvoke[*di.LoggerService](container)
	require.NoError(t, container.Shutdown())

	require.ErrorIs(t, loggerSvc.Output().Close(), os.ErrClosed)
}

func TestContainerShutdownWithContext(t *testing.T) {
	t.Parallel()

	path, _ := createTempConfigFile(t)
	container, err := di.NewContainer(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, container.ShutdownWithContext(ctx))
}

func TestConfigServiceOverride(t *testing.T) {
	t.Parallel()

	cfgSvc := di.NewConfigServiceWithConfig(config.Default())
	original := cfgSvc.Get()

	cfgSvc.Override(func(cfg *config.Config) {
		cfg.Logging.ConsoleLevel = config.LevelError
	})

	assert.Equal(t, zerolog.ErrorLevel, cfgSvc.ConsoleLevel())
	assert.Equal(t, config.LevelInfo, original.Logging.ConsoleLevel)
}

func TestConfigServiceHotReload(t *testing.T) {
	t.Parallel()

	path, _ := createTempConfigFile(t)
	container, err := di.NewContainer(path)
	require.NoError(t, err)
	t.Cleanup(func() { shutdownContainer(t, container) })

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfgSvc.Override(func(cfg *config.Config) { cfg.Workers.Count = 9 })
	cfgSvc.StartWatching(ctx)

	time.Sleep(50 * time.Millisecond)
	content := "logging:\n  console_level: warn\n  log_root: " + filepath.Join(t.TempDir(), "log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.Eventually(t, func() bool {
		return cfgSvc.ConsoleLevel() == zerolog.WarnLevel
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 9, cfgSvc.Get().Workers.Count)
}
