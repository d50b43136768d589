package process

import (
	"context"

	"github.com/webriots/procio"
	"golang.org/x/sync/errgroup"
)

// RunOption configures Run and Start.
type RunOption func(*Builder)

// Stdin feeds src to the command.
func Stdin(src procio.ByteSource) RunOption {
	return func(b *Builder) { b.WithSourceInput(src) }
}

// Stdout sends the command's stdout to sink.
func Stdout(sink procio.ByteSink) RunOption {
	return func(b *Builder) { b.WithSinkOutput(sink) }
}

// Stderr sends the command's stderr to sink.
func Stderr(sink procio.ByteSink) RunOption {
	return func(b *Builder) { b.WithSinkErrors(sink) }
}

// InDir runs the command in dir.
func InDir(dir string) RunOption {
	return func(b *Builder) { b.Dir(dir) }
}

// OnEngine starts the command with e instead of the default engine.
func OnEngine(e *Engine) RunOption {
	return func(b *Builder) { b.Engine(e) }
}

// Run runs argv and waits for it to exit. Streams without an option
// are discarded, and stdin is empty unless given.
func Run(ctx context.Context, argv []string, opts ...RunOption) (int, error) {
	b := Command(argv...)
	for _, opt := range opts {
		opt(b)
	}
	return b.Run(ctx)
}

// Start spawns argv and returns without waiting. When no Stderr option
// is given, stderr goes to the Stdout sink too, which then sees the end
// of output once both streams have closed.
func Start(ctx context.Context, argv []string, opts ...RunOption) (*Execution, error) {
	b := Command(argv...)
	for _, opt := range opts {
		opt(b)
	}
	b.shareStdout = true
	return b.Start(ctx)
}

// WaitAll waits for every execution, typically the stages of a
// pipeline, and returns their exit codes in order together with the
// first error.
func WaitAll(ctx context.Context, execs ...*Execution) ([]int, error) {
	codes := make([]int, len(execs))
	var g errgroup.Group
	for i, e := range execs {
		g.Go(func() error {
			code, err := e.Wait(ctx)
			codes[i] = code
			return err
		})
	}
	err := g.Wait()
	return codes, err
}
