package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webriots/procio"
	"github.com/webriots/procio/internal/config"
	"github.com/webriots/procio/internal/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func requireCommands(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunCatStringInput(t *testing.T) {
	requireCommands(t, "cat")

	var out strings.Builder
	code, err := Command("cat").
		WithStringInput("hello world").
		WithTextOutput(&out).
		Run(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "hello world", out.String())
}

func TestRunWithoutInputClosesStdin(t *testing.T) {
	requireCommands(t, "cat")

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	var out strings.Builder
	code, err := Command("cat").WithTextOutput(&out).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Empty(t, out.String())

	code, err = Run(ctx, []string{"cat"})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestPipeConsumerFinishesWhenProducerFailsToStart(t *testing.T) {
	requireCommands(t, "cat")

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	pipe := procio.NewPipe()
	_, err := Command("/nonexistent/procio-test-binary").
		WithPipeOutput(pipe).
		Start(ctx)
	require.Error(t, err)

	var out strings.Builder
	code, err := Command("cat").WithPipeInput(pipe).WithTextOutput(&out).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Empty(t, out.String())
}

func TestRunExitCode(t *testing.T) {
	requireCommands(t, "sh")

	code, err := Command("sh", "-c", "exit 3").Run(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunSeparatesStreams(t *testing.T) {
	requireCommands(t, "sh")

	var out, errs strings.Builder
	code, err := Command("sh", "-c", "echo out; echo err >&2").
		WithTextOutput(&out).
		WithTextErrors(&errs).
		Run(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "out\n", out.String())
	assert.Equal(t, "err\n", errs.String())
}

func TestRunDirAndEnv(t *testing.T) {
	requireCommands(t, "sh")

	dir := t.TempDir()
	var out strings.Builder
	code, err := Command("sh", "-c", `printf '%s %s' "$PROCIO_TEST_VALUE" "$(pwd)"`).
		Dir(dir).
		Env("PROCIO_TEST_VALUE", "42").
		WithTextOutput(&out).
		Run(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.True(t, strings.HasPrefix(out.String(), "42 "))
	assert.True(t, strings.HasSuffix(out.String(), dir[strings.LastIndex(dir, "/"):]))
}

func TestPipelineThroughPipe(t *testing.T) {
	requireCommands(t, "cat", "grep")
	ctx := testContext(t)

	pipe := procio.NewPipe()
	cat, err := Command("cat").
		WithStringInput("a\nb\nc\nbb\n").
		WithPipeOutput(pipe).
		Start(ctx)
	require.NoError(t, err)

	var out strings.Builder
	grep, err := Command("grep", "b").
		WithPipeInput(pipe).
		WithTextOutput(&out).
		Start(ctx)
	require.NoError(t, err)

	codes, err := WaitAll(ctx, cat, grep)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, codes)
	assert.Equal(t, "b\nbb\n", out.String())
}

func TestTeeToTwoProcesses(t *testing.T) {
	requireCommands(t, "cat")
	ctx := testContext(t)

	data := bytes.Repeat([]byte("0123456789abcdef\n"), 64*1024)

	tee := procio.NewTee()
	first, second := tee.Pipe(0), tee.Pipe(0)
	src, err := Command("cat").
		WithBytesInput(data).
		WithTeeOutput(tee).
		Start(ctx)
	require.NoError(t, err)

	var a, b bytes.Buffer
	left, err := Command("cat").WithPipeInput(first).WithWriterOutput(&a, false).Start(ctx)
	require.NoError(t, err)
	right, err := Command("cat").WithPipeInput(second).WithWriterOutput(&b, false).Start(ctx)
	require.NoError(t, err)

	codes, err := WaitAll(ctx, src, left, right)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, codes)
	assert.True(t, bytes.Equal(data, a.Bytes()))
	assert.True(t, bytes.Equal(data, b.Bytes()))
	assert.NoError(t, tee.Err())
}

func TestInteractiveInput(t *testing.T) {
	requireCommands(t, "cat")
	ctx := testContext(t)

	in := procio.NewInteractive()
	var out strings.Builder
	ex, err := Command("cat").
		WithInteractiveInput(in).
		WithTextOutput(&out).
		Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, InputInteractive, Command().WithInteractiveInput(in).InputKind())

	_, err = in.WriteString("one\n")
	require.NoError(t, err)
	_, err = in.WriteString("two\n")
	require.NoError(t, err)
	require.NoError(t, in.Close())

	code, err := ex.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestGeneratedInput(t *testing.T) {
	requireCommands(t, "wc")

	var out strings.Builder
	code, err := Command("wc", "-c").
		WithSourceInput(procio.Generate(func(yield func([]byte)) {
			line := []byte(strings.Repeat("z", 9) + "\n")
			for range 100 {
				yield(line)
			}
		})).
		WithTextOutput(&out).
		Run(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "1000", strings.TrimSpace(out.String()))
}

func TestFileInputAndOutput(t *testing.T) {
	requireCommands(t, "cat")

	dir := t.TempDir()
	in, out := dir+"/in.txt", dir+"/out.txt"
	require.NoError(t, writeFile(in, "file contents\n"))

	code, err := Command("cat").WithFileInput(in).WithFileOutput(out).Run(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)

	got, err := readFile(out)
	require.NoError(t, err)
	assert.Equal(t, "file contents\n", got)
}

func TestStartFailures(t *testing.T) {
	_, err := Command().Start(testContext(t))
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = Command("/nonexistent/procio-test-binary").Start(testContext(t))
	assert.Error(t, err)

	code, err := Run(testContext(t), []string{"/nonexistent/procio-test-binary"})
	assert.Equal(t, -1, code)
	assert.Error(t, err)
}

func TestSinkFailureIsReported(t *testing.T) {
	requireCommands(t, "sh")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	errBoom := errors.New("boom")

	code, err := Command("sh", "-c", "echo hi").
		Engine(NewEngine(WithMetrics(m))).
		WithSinkOutput(procio.SinkFunc(func(*procio.Buffer, bool) error { return errBoom })).
		Run(testContext(t))
	assert.Zero(t, code)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterErrors.WithLabelValues("stdout")))
}

func TestContextCancelKillsProcess(t *testing.T) {
	requireCommands(t, "sleep")

	ctx, cancel := context.WithCancel(t.Context())
	ex, err := Command("sleep", "30").Start(ctx)
	require.NoError(t, err)
	assert.NotZero(t, ex.Process().PID())

	cancel()
	code, err := ex.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, -1, code)
}

func TestKill(t *testing.T) {
	requireCommands(t, "sleep")

	ex, err := Command("sleep", "30").Start(testContext(t))
	require.NoError(t, err)
	require.NoError(t, ex.Process().Kill())

	code, err := ex.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, newTestProcess().Kill(), ErrNotStarted)
}

func TestStartSharesStdoutSink(t *testing.T) {
	requireCommands(t, "sh")

	var out strings.Builder
	ex, err := Start(testContext(t), []string{"sh", "-c", "echo out; echo err >&2"}, Stdout(procio.ToText(&out)))
	require.NoError(t, err)

	code, err := ex.Wait(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Contains(t, out.String(), "out\n")
	assert.Contains(t, out.String(), "err\n")
}

func TestRunHelper(t *testing.T) {
	requireCommands(t, "cat")

	var out strings.Builder
	code, err := Run(testContext(t), []string{"cat"},
		Stdin(procio.FromString("via run")),
		Stdout(procio.ToText(&out)),
		InDir(t.TempDir()),
		OnEngine(NewEngine(WithBufferCapacity(3))),
	)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "via run", out.String())
}

func TestEngineLogsAndMetrics(t *testing.T) {
	requireCommands(t, "cat")

	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	cfg := config.Default()
	cfg.BufferCapacity = 1024
	engine := NewEngine(WithConfig(cfg), WithLogger(zap.New(core)), WithRegistry(reg))

	input := strings.Repeat("x", 5000)
	var out strings.Builder
	ex, err := engine.Exec(testContext(t), []string{"cat"}, procio.FromString(input), procio.ToText(&out), nil)
	require.NoError(t, err)

	code, err := ex.Wait(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, input, out.String())

	started := logs.FilterMessage("process started").All()
	require.Len(t, started, 1)
	assert.Equal(t, ex.Process().ID(), started[0].ContextMap()["id"])
	assert.EqualValues(t, ex.Process().PID(), started[0].ContextMap()["pid"])
	require.Equal(t, 1, logs.FilterMessage("process exited").Len())

	count, err := testutil.GatherAndCount(reg, "procio_processes_started_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsOf(engine).ProcessExits.WithLabelValues("0")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metricsOf(engine).ProcessesRunning))
	assert.Equal(t, 5000.0, testutil.ToFloat64(metricsOf(engine).StreamBytes.WithLabelValues("stdin")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(metricsOf(engine).StreamBytes.WithLabelValues("stdout")))
}

func metricsOf(e *Engine) *metrics.Metrics { return e.metrics }
