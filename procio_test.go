package procio

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	wants  atomic.Int32
	closes atomic.Int32
	want   chan struct{}
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{want: make(chan struct{}, 1)}
}

func (p *fakeProcess) WantWrite() {
	p.wants.Add(1)
	select {
	case p.want <- struct{}{}:
	default:
	}
}

func (p *fakeProcess) CloseStdin(bool) { p.closes.Add(1) }

// drain calls src with buffers of the given size until it finishes and
// returns the bytes and the statuses it produced.
func drain(t *testing.T, src ByteSource, size int) ([]byte, []Status) {
	t.Helper()

	var (
		out      []byte
		statuses []Status
	)
	dst := NewBuffer(size)
	for i := 0; ; i++ {
		require.Less(t, i, 1_000_000, "source never finished")
		dst.Clear()
		status, err := src.OnInput(dst)
		require.NoError(t, err)
		dst.Flip()
		out = append(out, dst.Bytes()...)
		statuses = append(statuses, status)
		if status == Finished {
			return out, statuses
		}
	}
}

func TestStatusString(t *testing.T) {
	require := require.New(t)
	require.Equal("NeedMore", NeedMore.String())
	require.Equal("Enough", Enough.String())
	require.Equal("Finished", Finished.String())
	require.Equal("Status(7)", Status(7).String())
}

func TestFuncAdapters(t *testing.T) {
	require := require.New(t)

	proc := newFakeProcess()
	src := SourceFunc(func(dst *Buffer) (Status, error) {
		dst.PutString("x")
		return Finished, nil
	})
	src.OnStart(proc)
	require.EqualValues(1, proc.wants.Load())

	out, statuses := drain(t, src, 4)
	require.Equal("x", string(out))
	require.Equal([]Status{Finished}, statuses)

	var got []byte
	sink := SinkFunc(func(src *Buffer, closed bool) error {
		got = append(got, src.Bytes()...)
		src.Discard()
		return nil
	})
	sink.OnStart(proc)
	require.NoError(sink.OnOutput(WrapString("yz"), true))
	require.Equal("yz", string(got))
}
