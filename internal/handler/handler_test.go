package handler_test

import (
	"bytes"
	"context"
	"iter"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michsien/buck/internal/config"
	"github.com/michsien/buck/internal/globalstate"
	"github.com/michsien/buck/internal/handler"
	"github.com/michsien/buck/internal/invocation"
	"github.com/michsien/buck/internal/refwriter"
	"github.com/michsien/buck/internal/routing"
)

type invocationFixture struct {
	teardown *globalstate.Teardown
	console  *bytes.Buffer
	info     invocation.Info
	worker   routing.WorkerID
}

func newManager(t *testing.T) (*globalstate.Manager, string) {
	t.Helper()
	root := t.TempDir()
	m, err := globalstate.New(globalstate.WithLogRoot(root), globalstate.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m, root
}

func startInvocation(t *testing.T, m *globalstate.Manager, root string, v invocation.Verbosity) invocationFixture {
	t.Helper()
	f := invocationFixture{
		console: &bytes.Buffer{},
		info:    invocation.New("build", root),
		worker:  routing.NextWorkerID(),
	}
	td, err := m.Setup(routing.WithWorker(context.Background(), f.worker), globalstate.Request{
		Console:         f.console,
		OriginalConsole: &bytes.Buffer{},
		Info:            f.info,
		Verbosity:       v,
	})
	require.NoError(t, err)
	f.teardown = td
	return f
}

func jsonConfig() config.LoggingConfig {
	return config.LoggingConfig{Level: config.LevelDebug, ConsoleLevel: config.LevelInfo, Format: config.FormatJSON}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConsoleRecordsReachOwnInvocationOnly(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	a := startInvocation(t, m, root, invocation.VerbosityStandardInformation)
	b := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	logger := handler.NewLogger(jsonConfig(), m, a.worker)
	logger.Info().Msg("compiling A")

	assert.Contains(t, a.console.String(), "compiling A")
	assert.Empty(t, b.console.String())
}

func TestUnattributedRecordsReachEveryConsole(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	a := startInvocation(t, m, root, invocation.VerbosityStandardInformation)
	b := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	logger := handler.NewLogger(jsonConfig(), m, routing.NextWorkerID())
	logger.Warn().Msg("daemon memory high")

	assert.Contains(t, a.console.String(), "daemon memory high")
	assert.Contains(t, b.console.String(), "daemon memory high")
}

func TestConsoleLevelOverride(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	quiet := startInvocation(t, m, root, invocation.VerbosityStandardInformation)
	loud := startInvocation(t, m, root, invocation.VerbosityAll)

	quietLogger := handler.NewLogger(jsonConfig(), m, quiet.worker)
	quietLogger.Debug().Msg("quiet detail")
	loudLogger := handler.NewLogger(jsonConfig(), m, loud.worker)
	loudLogger.Debug().Msg("loud detail")

	assert.Empty(t, quiet.console.String())
	assert.Contains(t, loud.console.String(), "loud detail")
}

func TestConsoleLevelFollowsLevelFunc(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	inv := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	level := zerolog.ErrorLevel
	logger := handler.NewLogger(jsonConfig(), m, inv.worker,
		handler.WithConsoleLevel(func() zerolog.Level { return level }))

	logger.Info().Msg("first")
	level = zerolog.InfoLevel
	logger.Info().Msg("second")

	assert.NotContains(t, inv.console.String(), "first")
	assert.Contains(t, inv.console.String(), "second")
}

func TestLogFileRecordsFollowAttribution(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	a := startInvocation(t, m, root, invocation.VerbosityStandardInformation)
	b := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	logger := handler.NewLogger(jsonConfig(), m, a.worker)
	logger.Info().Str("target", "//a:lib").Msg("built")

	require.NoError(t, a.teardown.Close())
	require.NoError(t, b.teardown.Close())

	assert.Contains(t, readLog(t, a.info.LogFilePath()), "//a:lib")
	assert.NotContains(t, readLog(t, b.info.LogFilePath()), "//a:lib")
}

func TestLogFileLevelFilters(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	inv := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	cfg := jsonConfig()
	cfg.Level = config.LevelWarn
	logger := handler.NewLogger(cfg, m, inv.worker)
	logger.Info().Msg("skipped")
	logger.Warn().Msg("kept")

	require.NoError(t, inv.teardown.Close())
	content := readLog(t, inv.info.LogFilePath())
	assert.NotContains(t, content, "skipped")
	assert.Contains(t, content, "kept")
}

func TestPrettyConsole(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	inv := startInvocation(t, m, root, invocation.VerbosityStandardInformation)

	cfg := jsonConfig()
	cfg.Format = config.FormatPretty
	logger := handler.NewLogger(cfg, m, inv.worker)
	logger.Info().Msg("pretty")

	out := inv.console.String()
	assert.Contains(t, out, "-> pretty")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestConsoleDropsAfterShutdown(t *testing.T) {
	t.Parallel()

	m, root := newManager(t)
	inv := startInvocation(t, m, root, invocation.VerbosityStandardInformation)
	logger := handler.NewLogger(jsonConfig(), m, inv.worker)

	require.NoError(t, m.Shutdown())
	logger.Info().Msg("late")
	assert.NotContains(t, inv.console.String(), "late")
}

// fakeFileView attributes worker to commandID. The command's writer, when
// set, is returned by Writer; all is the fan-out.
type fakeFileView struct {
	command   mo.Option[routing.Writer]
	commandID string
	all       []routing.Writer
	worker    routing.WorkerID
}

func (v fakeFileView) CommandID(worker routing.WorkerID) mo.Option[string] {
	if worker == v.worker {
		return mo.Some(v.commandID)
	}
	return mo.None[string]()
}

func (v fakeFileView) Writer(string) mo.Option[routing.Writer] {
	return v.command
}

func (v fakeFileView) AllWriters() iter.Seq[routing.Writer] {
	return slices.Values(v.all)
}

func (v fakeFileView) Writers(commandID mo.Option[string]) iter.Seq[routing.Writer] {
	if commandID.IsPresent() {
		if w, ok := v.command.Get(); ok {
			return slices.Values([]routing.Writer{w})
		}
	}
	return v.AllWriters()
}

type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) { return 0, refwriter.ErrClosed }
func (closedWriter) Flush() error              { return nil }

type bufferWriter struct{ buf *bytes.Buffer }

func (w bufferWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (bufferWriter) Flush() error                  { return nil }

func TestLogFileRetriesAfterTeardownRace(t *testing.T) {
	t.Parallel()

	worker := routing.NextWorkerID()
	fallback := &bytes.Buffer{}
	view := fakeFileView{
		command:   mo.Some[routing.Writer](closedWriter{}),
		commandID: "cmd-gone",
		all:       []routing.Writer{bufferWriter{fallback}},
		worker:    worker,
	}
	h := handler.NewLogFileHandler(view, worker, handler.FixedLevel(zerolog.TraceLevel))

	n, err := h.WriteLevel(zerolog.InfoLevel, []byte("record\n"))
	require.NoError(t, err)
	assert.Equal(t, len("record\n"), n)
	assert.Equal(t, "record\n", fallback.String())
}

func TestLogFileFanOutWritesEachRecordOnce(t *testing.T) {
	t.Parallel()

	// The command is still attributed but its entry is already detached, and
	// one fan-out writer closes under us.
	worker := routing.NextWorkerID()
	live := &bytes.Buffer{}
	view := fakeFileView{
		command:   mo.None[routing.Writer](),
		commandID: "cmd-detached",
		all:       []routing.Writer{bufferWriter{live}, closedWriter{}},
		worker:    worker,
	}
	h := handler.NewLogFileHandler(view, worker, handler.FixedLevel(zerolog.TraceLevel))

	_, err := h.WriteLevel(zerolog.InfoLevel, []byte("record\n"))
	require.ErrorIs(t, err, refwriter.ErrClosed)
	assert.Equal(t, "record\n", live.String())
}

func TestLogFileUnattributedWritesFallback(t *testing.T) {
	t.Parallel()

	fallback := &bytes.Buffer{}
	view := fakeFileView{
		command:   mo.Some[routing.Writer](closedWriter{}),
		commandID: "cmd-other",
		all:       []routing.Writer{bufferWriter{fallback}},
		worker:    routing.NextWorkerID(),
	}
	h := handler.NewLogFileHandler(view, routing.NextWorkerID(), handler.FixedLevel(zerolog.TraceLevel))

	_, err := h.Write([]byte("record\n"))
	require.NoError(t, err)
	assert.Equal(t, "record\n", fallback.String())
}
