package procio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferFlipCompact(t *testing.T) {
	require := require.New(t)

	b := NewBuffer(8)
	require.Equal(8, b.Remaining())
	require.Equal(6, b.PutString("abcdef"))
	b.Flip()
	require.Equal(6, b.Remaining())

	p := make([]byte, 4)
	n, err := b.Read(p)
	require.NoError(err)
	require.Equal("abcd", string(p[:n]))

	b.Compact()
	require.Equal(2, b.Position())
	require.Equal(8, b.Limit())
	require.Equal(6, b.PutString("ghijkl"))
	b.Flip()
	require.Equal("efghijkl", string(b.Bytes()))

	b.Rewind()
	require.Equal(8, b.Remaining())
	b.Clear()
	require.Equal(0, b.Position())
	require.Equal(8, b.Limit())
}

func TestBufferPutBufferIsBounded(t *testing.T) {
	require := require.New(t)

	dst := NewBuffer(3)
	src := WrapString("hello")
	require.Equal(3, dst.PutBuffer(src))
	require.False(dst.HasRemaining())
	require.Equal(2, src.Remaining())
	require.Equal(0, dst.PutBuffer(src))

	dst.Flip()
	require.Equal("hel", string(dst.Bytes()))
	require.Equal("lo", string(src.Bytes()))
}

func TestBufferDuplicate(t *testing.T) {
	require := require.New(t)

	b := WrapString("abc")
	d := b.Duplicate()
	d.Skip(2)
	require.Equal(0, b.Position())
	require.Equal(3, b.Remaining())
	require.Equal(1, d.Remaining())

	d.Rewind()
	d.SetLimit(1)
	require.Equal("a", string(d.Bytes()))
	require.Equal("abc", string(b.Bytes()))
}

func TestBufferBytesCannotGrowPastLimit(t *testing.T) {
	require := require.New(t)

	b := NewBuffer(8)
	b.SetLimit(4)
	p := append(b.Bytes()[:0], "abcdefgh"...)
	require.Len(p, 8)
	b.Clear()
	require.Equal(make([]byte, 8), b.Bytes())
}

func TestBufferIO(t *testing.T) {
	require := require.New(t)

	b := NewBuffer(4)
	n, err := b.Write([]byte("abcdef"))
	require.Equal(4, n)
	require.ErrorIs(err, io.ErrShortBuffer)

	b.Flip()
	c, err := b.ReadByte()
	require.NoError(err)
	require.Equal(byte('a'), c)

	var w bytes.Buffer
	m, err := b.WriteTo(&w)
	require.NoError(err)
	require.EqualValues(3, m)
	require.Equal("bcd", w.String())

	_, err = b.ReadByte()
	require.ErrorIs(err, io.EOF)
	_, err = b.Read(make([]byte, 1))
	require.ErrorIs(err, io.EOF)
}

func TestBufferMisusePanics(t *testing.T) {
	require := require.New(t)

	require.Panics(func() { NewBuffer(-1) })
	require.Panics(func() { NewBuffer(2).Skip(3) })
	require.Panics(func() { NewBuffer(2).SetLimit(3) })
	require.Panics(func() {
		b := NewBuffer(4)
		b.SetLimit(2)
		b.SetPosition(3)
	})

	b := NewBuffer(4)
	b.SetPosition(3)
	b.SetLimit(2)
	require.Equal(2, b.Position())
	require.Equal(0, b.Discard())
}
