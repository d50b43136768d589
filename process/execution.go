package process

import (
	"context"
	"sync"
)

// Execution is the outcome of a started process. It resolves exactly
// once, when the process has exited and its output has been delivered.
type Execution struct {
	proc *Process
	done chan struct{}
	once sync.Once
	code int
	err  error
}

func newExecution() *Execution {
	return &Execution{done: make(chan struct{})}
}

func (e *Execution) resolve(code int, err error) {
	e.once.Do(func() {
		e.code = code
		e.err = err
		close(e.done)
	})
}

// Process returns the handle of the running process.
func (e *Execution) Process() *Process { return e.proc }

// Done is closed once the execution has resolved.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Wait blocks until the process exits or ctx is done. It returns the
// exit code and the adapter failures, if any.
func (e *Execution) Wait(ctx context.Context) (int, error) {
	select {
	case <-e.done:
		return e.code, e.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// ExitCode returns the exit code and true once the execution has
// resolved.
func (e *Execution) ExitCode() (int, bool) {
	select {
	case <-e.done:
		return e.code, true
	default:
		return 0, false
	}
}

// Err returns the adapter failures once the execution has resolved.
func (e *Execution) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}
