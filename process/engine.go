// Package process runs child processes and connects their standard
// streams to procio sources and sinks.
//
// An Engine spawns each child with os/exec and drives it from three
// goroutines: one per output stream, delivering chunks to the
// Listener, and one for stdin, asking the Listener for input whenever
// it has requested write readiness. A Binding is the Listener that
// adapts these callbacks to a ByteSource and two ByteSinks, and a
// Builder assembles a Binding from named input and output kinds.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/webriots/procio"
	"github.com/webriots/procio/internal/config"
	"github.com/webriots/procio/internal/metrics"
	"go.uber.org/zap"
)

// ErrEmptyCommand is returned when starting a command without a
// program name.
var ErrEmptyCommand = errors.New("process: empty command")

// ErrNotStarted is returned when signalling a process that was never
// spawned.
var ErrNotStarted = errors.New("process: not started")

// Engine spawns child processes. The zero value is not usable; create
// engines with NewEngine.
type Engine struct {
	bufferCapacity int
	log            *zap.Logger
	metrics        *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sizes the engine's stream buffers from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.bufferCapacity = cfg.BufferCapacity
	}
}

// WithBufferCapacity sets the size of the buffers handed to adapters.
func WithBufferCapacity(n int) Option {
	return func(e *Engine) {
		e.bufferCapacity = n
	}
}

// WithLogger sets the logger for process lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRegistry registers the engine's collectors with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics = metrics.New(reg)
	}
}

// NewEngine returns an Engine. By default it logs nothing, records no
// metrics and exchanges procio.DefaultBufferCapacity-sized buffers.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		bufferCapacity: procio.DefaultBufferCapacity,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bufferCapacity <= 0 {
		e.bufferCapacity = procio.DefaultBufferCapacity
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine { return NewEngine() })

// Default returns the engine used by Builders that were not given one.
func Default() *Engine { return defaultEngine() }

// CommandOption adjusts the command before it is spawned.
type CommandOption func(*exec.Cmd)

// WithDir runs the command in dir.
func WithDir(dir string) CommandOption {
	return func(cmd *exec.Cmd) {
		cmd.Dir = dir
	}
}

// WithEnv adds "key=value" entries to the environment inherited from
// the current process.
func WithEnv(env ...string) CommandOption {
	return func(cmd *exec.Cmd) {
		if cmd.Env == nil {
			cmd.Env = os.Environ()
		}
		cmd.Env = append(cmd.Env, env...)
	}
}

// Start spawns argv and drives it with l. The process is killed if ctx
// is done before it exits.
func (e *Engine) Start(ctx context.Context, argv []string, l Listener, opts ...CommandOption) (*Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	for _, opt := range opts {
		opt(cmd)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe: %w", err)
	}

	p := newProcess(e, cmd, argv, stdin)
	l.OnPreStart(p)

	if err := cmd.Start(); err != nil {
		p.log.Warn("process failed to start", zap.Error(err))
		return nil, fmt.Errorf("process: start %s: %w", argv[0], err)
	}
	p.started()
	l.OnStart(p)

	go p.run(l, stdout, stderr)
	return p, nil
}

// Exec starts argv bound to the given adapters and returns its
// Execution.
func (e *Engine) Exec(
	ctx context.Context,
	argv []string,
	stdin procio.ByteSource,
	stdout, stderr procio.ByteSink,
	opts ...CommandOption,
) (*Execution, error) {
	b := Bind(stdin, stdout, stderr)
	if _, err := e.Start(ctx, argv, b, opts...); err != nil {
		return nil, err
	}
	return b.Execution(), nil
}
