package process

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/webriots/procio"
)

// Binding is a Listener connecting a child process to one ByteSource
// and two ByteSinks. The first failure of each adapter is recorded and
// the adapter receives no further calls; the failures are reported by
// the Execution along with the exit code.
type Binding struct {
	stdin  procio.ByteSource
	stdout procio.ByteSink
	stderr procio.ByteSink
	exec   *Execution
	proc   *Process

	mu   sync.Mutex
	errs [3]error // indexed by Stream
}

// Bind returns a Binding for the given adapters. A nil source means no
// input and a nil sink discards its stream.
func Bind(stdin procio.ByteSource, stdout, stderr procio.ByteSink) *Binding {
	if stdin == nil {
		stdin = procio.NoInput
	}
	if stdout == nil {
		stdout = procio.Discard
	}
	if stderr == nil {
		stderr = procio.Discard
	}
	return &Binding{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		exec:   newExecution(),
	}
}

// Execution returns the completion resolved when the process exits.
func (b *Binding) Execution() *Execution { return b.exec }

// Err returns the adapter failures recorded so far.
func (b *Binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs[:]...)
}

func (b *Binding) OnPreStart(p *Process) {
	b.proc = p
	b.exec.proc = p
}

func (b *Binding) OnStart(p *Process) {
	b.stdin.OnStart(p)
	b.stdout.OnStart(p)
	b.stderr.OnStart(p)
}

func (b *Binding) OnStdout(buf *procio.Buffer, closed bool) {
	b.deliver(StreamStdout, b.stdout, buf, closed)
}

func (b *Binding) OnStderr(buf *procio.Buffer, closed bool) {
	b.deliver(StreamStderr, b.stderr, buf, closed)
}

func (b *Binding) OnStdinReady(buf *procio.Buffer) bool {
	if b.failed(StreamStdin) {
		b.proc.CloseStdin(false)
		return false
	}

	status, err := b.stdin.OnInput(buf)
	if err != nil {
		b.fail(StreamStdin, err)
		b.proc.CloseStdin(false)
		return false
	}

	switch status {
	case procio.NeedMore:
		return true
	case procio.Finished:
		b.proc.CloseStdin(false)
	}
	return false
}

func (b *Binding) OnExit(code int) {
	if c, ok := b.stdin.(io.Closer); ok {
		if err := c.Close(); err != nil {
			b.fail(StreamStdin, err)
		}
	}
	b.exec.resolve(code, b.Err())
}

func (b *Binding) deliver(s Stream, sink procio.ByteSink, buf *procio.Buffer, closed bool) {
	if !b.failed(s) {
		if err := sink.OnOutput(buf, closed); err != nil {
			b.fail(s, err)
		}
	}
	buf.Discard()
}

func (b *Binding) failed(s Stream) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errs[s] != nil
}

func (b *Binding) fail(s Stream, err error) {
	b.mu.Lock()
	first := b.errs[s] == nil
	if first {
		b.errs[s] = fmt.Errorf("process: %s: %w", s, err)
	}
	b.mu.Unlock()

	if first && b.proc != nil {
		b.proc.adapterFailed(s, err)
	}
}
