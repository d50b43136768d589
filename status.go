package procio

import (
	"errors"
	"fmt"
)

// ErrClosedInput is returned when writing to an Interactive source
// after it has been closed.
var ErrClosedInput = errors.New("procio: write to closed input")

// Status is a ByteSource's answer to a request for input.
type Status uint8

const (
	// NeedMore means more input is ready right now and the source
	// wants to be called again before the engine yields.
	NeedMore Status = iota

	// Enough means the source has nothing more ready. It will request
	// another call with Process.WantWrite when it does.
	Enough

	// Finished means input is complete. Bytes produced by the call
	// that returned Finished are still delivered, then the child's
	// stdin is closed.
	Finished
)

func (s Status) String() string {
	switch s {
	case NeedMore:
		return "NeedMore"
	case Enough:
		return "Enough"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Process is the part of a running child process that adapters may
// act on.
type Process interface {
	// WantWrite asks the engine to request input from the process's
	// ByteSource at its next opportunity. It never blocks and may be
	// called from any goroutine.
	WantWrite()

	// CloseStdin closes the child's stdin. When force is false the
	// close happens after any write in progress completes.
	CloseStdin(force bool)
}

// ByteSource supplies a child process's stdin.
type ByteSource interface {
	// OnStart is called once the process is running.
	OnStart(p Process)

	// OnInput fills dst, which is in write mode, advancing its
	// position past the bytes produced. A non-nil error ends input.
	OnInput(dst *Buffer) (Status, error)
}

// ByteSink consumes a child process's stdout or stderr.
type ByteSink interface {
	// OnStart is called once the process is running.
	OnStart(p Process)

	// OnOutput receives a chunk in read mode and must consume all of
	// it. closed reports that no further chunks will follow. A non-nil
	// error stops delivery to the sink.
	OnOutput(src *Buffer, closed bool) error
}

// SourceFunc adapts a function to a ByteSource. Its OnStart requests
// input immediately.
type SourceFunc func(dst *Buffer) (Status, error)

func (f SourceFunc) OnStart(p Process) { p.WantWrite() }

func (f SourceFunc) OnInput(dst *Buffer) (Status, error) { return f(dst) }

// SinkFunc adapts a function to a ByteSink. The function must consume
// src.
type SinkFunc func(src *Buffer, closed bool) error

func (f SinkFunc) OnStart(Process) {}

func (f SinkFunc) OnOutput(src *Buffer, closed bool) error { return f(src, closed) }
