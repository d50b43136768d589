package procio

import (
	"sync"
	"unicode/utf8"

	"github.com/gammazero/deque"
)

// Interactive is a ByteSource fed by the caller while the process
// runs. Every write is queued and requests input from the engine;
// Close ends input once the queue has drained.
type Interactive struct {
	mu     sync.Mutex
	queue  deque.Deque[[]byte] // Pending chunks, oldest first
	off    int                 // Bytes of the front chunk already delivered
	queued int                 // Bytes waiting in the queue
	closed bool
	proc   Process
}

// NewInteractive returns an empty, open Interactive source.
func NewInteractive() *Interactive {
	return &Interactive{}
}

// OnStart records the process and requests input if anything was
// written or closed before it started.
func (in *Interactive) OnStart(p Process) {
	in.mu.Lock()
	in.proc = p
	pending := in.queued > 0 || in.closed
	in.mu.Unlock()

	if pending {
		p.WantWrite()
	}
}

// OnInput moves queued bytes into dst.
func (in *Interactive) OnInput(dst *Buffer) (Status, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for in.queue.Len() > 0 && dst.HasRemaining() {
		chunk := in.queue.Front()
		n := dst.Put(chunk[in.off:])
		in.off += n
		in.queued -= n
		if in.off == len(chunk) {
			in.queue.PopFront()
			in.off = 0
		}
	}

	switch {
	case in.queued > 0:
		return NeedMore, nil
	case in.closed:
		return Finished, nil
	default:
		return Enough, nil
	}
}

// Write queues a copy of p.
func (in *Interactive) Write(p []byte) (int, error) {
	return in.push(append([]byte(nil), p...))
}

// WriteString queues s.
func (in *Interactive) WriteString(s string) (int, error) {
	return in.push([]byte(s))
}

// WriteRune queues the UTF-8 encoding of r.
func (in *Interactive) WriteRune(r rune) (int, error) {
	return in.push(utf8.AppendRune(nil, r))
}

func (in *Interactive) push(chunk []byte) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return 0, ErrClosedInput
	}
	in.queue.PushBack(chunk)
	in.queued += len(chunk)
	proc := in.proc
	in.mu.Unlock()

	if proc != nil {
		proc.WantWrite()
	}
	return len(chunk), nil
}

// Close ends input after the queued bytes have been delivered. It is
// safe to call more than once.
func (in *Interactive) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	proc := in.proc
	in.mu.Unlock()

	if proc != nil {
		proc.WantWrite()
	}
	return nil
}

// Buffered returns the number of bytes written but not yet delivered.
func (in *Interactive) Buffered() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.queued
}
