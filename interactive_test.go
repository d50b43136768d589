package procio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInteractiveQueuesWritesBeforeStart(t *testing.T) {
	require := require.New(t)

	in := NewInteractive()
	n, err := in.WriteString("ab")
	require.NoError(err)
	require.Equal(2, n)
	require.Equal(2, in.Buffered())

	proc := newFakeProcess()
	in.OnStart(proc)
	require.EqualValues(1, proc.wants.Load())

	dst := NewBuffer(1)
	status, err := in.OnInput(dst)
	require.NoError(err)
	require.Equal(NeedMore, status)

	dst.Clear()
	status, err = in.OnInput(dst)
	require.NoError(err)
	require.Equal(Enough, status)
	require.Zero(in.Buffered())
}

func TestInteractiveFinishesAfterCloseAndDrain(t *testing.T) {
	require := require.New(t)

	in := NewInteractive()
	proc := newFakeProcess()
	in.OnStart(proc)
	require.Zero(proc.wants.Load())

	_, err := in.Write([]byte("hello "))
	require.NoError(err)
	_, err = in.WriteRune('€')
	require.NoError(err)
	require.EqualValues(2, proc.wants.Load())

	require.NoError(in.Close())
	require.NoError(in.Close())
	require.EqualValues(3, proc.wants.Load())

	out, statuses := drain(t, in, 4)
	require.Equal("hello €", string(out))
	require.Equal(Finished, statuses[len(statuses)-1])
	for _, s := range statuses[:len(statuses)-1] {
		require.Equal(NeedMore, s)
	}

	_, err = in.WriteString("late")
	require.ErrorIs(err, ErrClosedInput)
}

func TestInteractiveWriteCopiesInput(t *testing.T) {
	in := NewInteractive()
	p := []byte("abc")
	_, err := in.Write(p)
	require.NoError(t, err)
	p[0] = 'x'
	require.NoError(t, in.Close())

	out, _ := drain(t, in, 8)
	require.Equal(t, "abc", string(out))
}

func TestInteractiveEmptyWrite(t *testing.T) {
	in := NewInteractive()
	proc := newFakeProcess()
	in.OnStart(proc)

	n, err := in.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, proc.wants.Load())
}
