package procio

import "sync"

// receiver is the consumer side of a Multiplexer. receive runs with
// the multiplexer's delivery mutex held; received runs after it is
// released.
type receiver interface {
	receive(src *Buffer, closed bool) error
	received()
}

type funcReceiver func(src *Buffer, closed bool) error

func (f funcReceiver) receive(src *Buffer, closed bool) error { return f(src, closed) }

func (funcReceiver) received() {}

// Multiplexer merges the output of several producers into a single
// receiver. Each producer registers an output with NewOutput. The
// receiver sees every chunk with the aggregate closed flag, which
// becomes true once every registered output has closed and stays true
// from then on. With no outputs registered the aggregate is false.
//
// Deliveries are serialized by their own mutex, taken before the
// registry mutex, so registering or querying outputs never waits on
// the receiver's I/O.
type Multiplexer struct {
	emit sync.Mutex // held across receive

	mu      sync.Mutex
	outputs []*muxOutput
	sealed  bool
	recv    receiver
}

// NewMultiplexer returns a Multiplexer delivering to fn. fn is called
// one chunk at a time, in delivery order, and must consume src.
func NewMultiplexer(fn func(src *Buffer, closed bool) error) *Multiplexer {
	return &Multiplexer{recv: funcReceiver(fn)}
}

// NewOutput registers a producer and returns the ByteSink it writes
// to. It panics once the aggregate has closed.
func (m *Multiplexer) NewOutput() ByteSink {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		panic("procio: output registered after multiplexer closed")
	}
	o := &muxOutput{m: m}
	m.outputs = append(m.outputs, o)
	return o
}

// OutputClosed reports whether every registered output has closed.
func (m *Multiplexer) OutputClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closedLocked()
}

// Outputs returns the number of registered outputs.
func (m *Multiplexer) Outputs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outputs)
}

func (m *Multiplexer) closedLocked() bool {
	if m.sealed {
		return true
	}
	if len(m.outputs) == 0 {
		return false
	}
	for _, o := range m.outputs {
		if !o.closed {
			return false
		}
	}
	m.sealed = true
	return true
}

func (m *Multiplexer) deliver(o *muxOutput, src *Buffer, closed bool) error {
	m.emit.Lock()
	m.mu.Lock()
	if closed {
		o.closed = true
	}
	all := m.closedLocked()
	m.mu.Unlock()

	err := m.recv.receive(src, all)
	m.emit.Unlock()

	src.Discard()
	m.recv.received()
	return err
}

type muxOutput struct {
	m      *Multiplexer
	closed bool // guarded by m.mu
}

func (o *muxOutput) OnStart(Process) {}

func (o *muxOutput) OnOutput(src *Buffer, closed bool) error {
	return o.m.deliver(o, src, closed)
}
