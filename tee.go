package procio

import "errors"

// Tee copies one stream to several consumers. Producers register with
// NewOutput, exactly as with a Pipe; consumers are added with AddSink
// or Pipe. Each consumer receives every chunk delivered after it was
// added, through its own view of the chunk, together with the
// aggregate closed flag.
//
// Deliveries are serialized, so a slow consumer delays the
// others. A consumer whose OnOutput fails is detached and stops
// receiving; its error is kept and reported by Err. The producer only
// sees an error once every consumer has failed.
type Tee struct {
	mux   Multiplexer
	sinks []*teeSink // guarded by mux.emit
	errs  []error    // guarded by mux.emit
}

type teeSink struct {
	sink   ByteSink
	failed bool
}

// NewTee returns a Tee with no producers and no consumers.
func NewTee() *Tee {
	t := &Tee{}
	t.mux.recv = t
	return t
}

// NewOutput registers a producer.
func (t *Tee) NewOutput() ByteSink {
	return t.mux.NewOutput()
}

// OutputClosed reports whether every registered producer has closed.
func (t *Tee) OutputClosed() bool {
	return t.mux.OutputClosed()
}

// Producers returns the number of registered producers.
func (t *Tee) Producers() int {
	return t.mux.Outputs()
}

// AddSink adds a consumer and returns it.
func (t *Tee) AddSink(s ByteSink) ByteSink {
	t.mux.emit.Lock()
	defer t.mux.emit.Unlock()
	t.sinks = append(t.sinks, &teeSink{sink: s})
	return s
}

// Pipe adds a consumer pipe with the given initial capacity and returns
// it for use as another process's ByteSource.
func (t *Tee) Pipe(capacity int) *Pipe {
	p := NewPipeSize(capacity)
	t.AddSink(p.NewOutput())
	return p
}

// Consumers returns the number of consumers that have not failed.
func (t *Tee) Consumers() int {
	t.mux.emit.Lock()
	defer t.mux.emit.Unlock()
	n := 0
	for _, s := range t.sinks {
		if !s.failed {
			n++
		}
	}
	return n
}

// Err returns the errors of every detached consumer joined together,
// or nil.
func (t *Tee) Err() error {
	t.mux.emit.Lock()
	defer t.mux.emit.Unlock()
	return errors.Join(t.errs...)
}

func (t *Tee) receive(src *Buffer, closed bool) error {
	healthy := 0
	for _, s := range t.sinks {
		if s.failed {
			continue
		}
		if err := s.sink.OnOutput(src.Duplicate(), closed); err != nil {
			s.failed = true
			t.errs = append(t.errs, err)
			continue
		}
		healthy++
	}
	if healthy == 0 && len(t.errs) > 0 {
		return errors.Join(t.errs...)
	}
	return nil
}

func (t *Tee) received() {}
