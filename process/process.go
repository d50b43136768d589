package process

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webriots/procio"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Process is the handle of a child process started by an Engine. It
// implements procio.Process.
type Process struct {
	id     string
	argv   []string
	cmd    *exec.Cmd
	engine *Engine
	log    *zap.Logger
	stdin  io.WriteCloser
	start  time.Time

	want      chan struct{} // write readiness requests, capacity 1
	closeReq  chan struct{} // closed once stdin should be closed
	closeOnce sync.Once
	stdinOnce sync.Once
	exited    chan struct{}
}

var _ procio.Process = (*Process)(nil)

func newProcess(e *Engine, cmd *exec.Cmd, argv []string, stdin io.WriteCloser) *Process {
	id := uuid.NewString()
	return &Process{
		id:       id,
		argv:     argv,
		cmd:      cmd,
		engine:   e,
		log:      e.log.With(zap.String("id", id), zap.Strings("argv", argv)),
		stdin:    stdin,
		want:     make(chan struct{}, 1),
		closeReq: make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// ID returns a unique identifier for the process, used in logs.
func (p *Process) ID() string { return p.id }

// Argv returns the command line.
func (p *Process) Argv() []string { return p.argv }

// PID returns the operating system's process id, or 0 before the
// process has been spawned.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// WantWrite asks for the next input callback. Requests made before the
// previous one was served are merged.
func (p *Process) WantWrite() {
	select {
	case p.want <- struct{}{}:
	default:
	}
}

// CloseStdin closes the child's stdin. With force unset, bytes already
// produced by the current input callback are written first.
func (p *Process) CloseStdin(force bool) {
	p.closeOnce.Do(func() { close(p.closeReq) })
	if force {
		p.closeStdin()
	}
}

// Kill terminates the child immediately.
func (p *Process) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return ErrNotStarted
	}
	return p.cmd.Process.Kill()
}

// Exited is closed once the child has exited, before the Listener's
// OnExit is called.
func (p *Process) Exited() <-chan struct{} { return p.exited }

func (p *Process) started() {
	p.start = time.Now()
	p.log = p.log.With(zap.Int("pid", p.PID()))
	p.engine.metrics.Started()
	p.log.Info("process started")
}

func (p *Process) run(l Listener, stdout, stderr io.Reader) {
	var g errgroup.Group
	g.Go(func() error { return p.pump(StreamStdout, stdout, l.OnStdout) })
	g.Go(func() error { return p.pump(StreamStderr, stderr, l.OnStderr) })
	go p.feed(l)

	if err := g.Wait(); err != nil {
		p.log.Warn("output stream failed", zap.Error(err))
	}

	code, err := exitCode(p.cmd.Wait())
	close(p.exited)
	p.closeStdin()

	elapsed := time.Since(p.start)
	p.engine.metrics.Exited(code, elapsed)
	if err != nil {
		p.log.Warn("process wait failed", zap.Error(err))
	}
	p.log.Info("process exited", zap.Int("code", code), zap.Duration("elapsed", elapsed))

	l.OnExit(code)
}

// pump reads one output stream until it closes. The last delivery
// always has closed set, even when it carries no bytes.
func (p *Process) pump(s Stream, r io.Reader, deliver func(*procio.Buffer, bool)) error {
	buf := procio.NewBuffer(p.engine.bufferCapacity)
	for {
		buf.Clear()
		n, err := r.Read(buf.Bytes())
		buf.Skip(n)
		buf.Flip()
		p.engine.metrics.AddBytes(s.String(), n)

		closed := err != nil
		if n > 0 || closed {
			deliver(buf, closed)
		}
		switch {
		case err == io.EOF, errors.Is(err, os.ErrClosed):
			return nil
		case err != nil:
			return err
		}
	}
}

// feed serves write readiness requests until stdin is closed or the
// child exits.
func (p *Process) feed(l Listener) {
	buf := procio.NewBuffer(p.engine.bufferCapacity)
	for {
		select {
		case <-p.exited:
			return
		case <-p.closeReq:
			p.closeStdin()
			return
		case <-p.want:
		}

		for more := true; more; {
			buf.Clear()
			more = l.OnStdinReady(buf)
			buf.Flip()

			n, err := buf.WriteTo(p.stdin)
			p.engine.metrics.AddBytes(StreamStdin.String(), int(n))
			if err != nil {
				p.log.Debug("stdin write failed", zap.Error(err))
				p.closeStdin()
				return
			}
			if p.closeRequested() {
				p.closeStdin()
				return
			}
		}
	}
}

func (p *Process) closeRequested() bool {
	select {
	case <-p.closeReq:
		return true
	default:
		return false
	}
}

func (p *Process) closeStdin() {
	p.stdinOnce.Do(func() {
		if err := p.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			p.log.Debug("stdin close failed", zap.Error(err))
		}
	})
}

func (p *Process) adapterFailed(s Stream, err error) {
	p.engine.metrics.AdapterError(s.String())
	p.log.Warn("adapter failed", zap.Stringer("stream", s), zap.Error(err))
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
