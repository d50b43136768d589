package procio

import "fmt"

// PipeState describes how far a Pipe has progressed.
type PipeState uint8

const (
	// PipeOpen means producers may still deliver bytes.
	PipeOpen PipeState = iota

	// PipeDraining means every producer has closed and bytes remain
	// to be consumed.
	PipeDraining

	// PipeFinished means every producer has closed and the buffer is
	// empty.
	PipeFinished
)

func (s PipeState) String() string {
	switch s {
	case PipeOpen:
		return "Open"
	case PipeDraining:
		return "Draining"
	case PipeFinished:
		return "Finished"
	default:
		return fmt.Sprintf("PipeState(%d)", uint8(s))
	}
}

// Pipe connects the output of one or more processes to the input of
// another. Producers register with NewOutput; the consuming process
// uses the Pipe itself as its ByteSource. Bytes are queued in a buffer
// that doubles whenever an incoming chunk does not fit, so producers
// never block and nothing is dropped.
//
// The multiplexer's delivery mutex guards the buffer and the closure
// state. The consumer's WantWrite is signalled after it is released.
type Pipe struct {
	mux    Multiplexer
	buf    *Buffer // read mode
	closed bool
	proc   Process
}

// NewPipe returns a Pipe with DefaultBufferCapacity initial capacity.
func NewPipe() *Pipe {
	return NewPipeSize(DefaultBufferCapacity)
}

// NewPipeSize returns a Pipe with the given initial capacity. A
// non-positive capacity selects DefaultBufferCapacity.
func NewPipeSize(capacity int) *Pipe {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	p := &Pipe{buf: NewBuffer(capacity)}
	p.buf.Flip()
	p.mux.recv = p
	return p
}

// NewOutput registers a producer and returns the ByteSink it should
// write to.
func (p *Pipe) NewOutput() ByteSink {
	return p.mux.NewOutput()
}

// OutputClosed reports whether every registered producer has closed.
func (p *Pipe) OutputClosed() bool {
	return p.mux.OutputClosed()
}

// Producers returns the number of registered producers.
func (p *Pipe) Producers() int {
	return p.mux.Outputs()
}

// OnStart records the consuming process. Input is requested straight
// away if bytes or the end of input are already waiting.
func (p *Pipe) OnStart(proc Process) {
	p.mux.emit.Lock()
	p.proc = proc
	pending := p.buf.HasRemaining() || p.closed
	p.mux.emit.Unlock()

	if pending {
		proc.WantWrite()
	}
}

// OnInput moves as many queued bytes as fit into dst.
func (p *Pipe) OnInput(dst *Buffer) (Status, error) {
	p.mux.emit.Lock()
	defer p.mux.emit.Unlock()

	dst.PutBuffer(p.buf)
	switch {
	case p.buf.HasRemaining():
		return NeedMore, nil
	case p.closed:
		return Finished, nil
	default:
		return Enough, nil
	}
}

// Buffered returns the number of queued bytes.
func (p *Pipe) Buffered() int {
	p.mux.emit.Lock()
	defer p.mux.emit.Unlock()
	return p.buf.Remaining()
}

// Cap returns the current capacity of the queue.
func (p *Pipe) Cap() int {
	p.mux.emit.Lock()
	defer p.mux.emit.Unlock()
	return p.buf.Cap()
}

// State returns the pipe's progress.
func (p *Pipe) State() PipeState {
	p.mux.emit.Lock()
	defer p.mux.emit.Unlock()
	switch {
	case !p.closed:
		return PipeOpen
	case p.buf.HasRemaining():
		return PipeDraining
	default:
		return PipeFinished
	}
}

func (p *Pipe) receive(src *Buffer, closed bool) error {
	p.buf.Compact()
	for src.Remaining() > p.buf.Remaining() {
		p.grow()
	}
	p.buf.PutBuffer(src)
	p.buf.Flip()
	if closed {
		p.closed = true
	}
	return nil
}

func (p *Pipe) received() {
	p.mux.emit.Lock()
	proc := p.proc
	p.mux.emit.Unlock()

	if proc != nil {
		proc.WantWrite()
	}
}

// grow doubles the capacity of the buffer, which is in write mode.
func (p *Pipe) grow() {
	next := NewBuffer(2 * p.buf.Cap())
	p.buf.Flip()
	next.PutBuffer(p.buf)
	p.buf = next
}
