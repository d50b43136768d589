package process

import (
	"fmt"

	"github.com/webriots/procio"
)

// Stream identifies one of a child process's standard streams.
type Stream uint8

const (
	StreamStdin Stream = iota
	StreamStdout
	StreamStderr
)

func (s Stream) String() string {
	switch s {
	case StreamStdin:
		return "stdin"
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	default:
		return fmt.Sprintf("Stream(%d)", uint8(s))
	}
}

// Listener receives the callbacks of one child process. OnStdout and
// OnStderr are each called from their own goroutine, OnStdinReady from
// a third. Buffers passed to the stream callbacks are reused once the
// callback returns.
type Listener interface {
	// OnPreStart is called before the child is spawned.
	OnPreStart(p *Process)

	// OnStart is called once the child is running.
	OnStart(p *Process)

	// OnExit is called with the exit code after both output streams
	// have been closed. A child killed by a signal exits with -1.
	OnExit(code int)

	// OnStdout receives a chunk of stdout in read mode. closed is set
	// on the last call for the stream.
	OnStdout(buf *procio.Buffer, closed bool)

	// OnStderr receives a chunk of stderr in read mode.
	OnStderr(buf *procio.Buffer, closed bool)

	// OnStdinReady fills buf, which is in write mode, with input for
	// the child. Returning true asks to be called again as soon as the
	// bytes have been written.
	OnStdinReady(buf *procio.Buffer) bool
}
