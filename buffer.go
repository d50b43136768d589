package procio

import (
	"fmt"
	"io"
)

// DefaultBufferCapacity is the size of the buffers an engine exchanges
// with its adapters and the initial capacity of a Pipe.
const DefaultBufferCapacity = 64 * 1024

// Buffer is a window over a fixed byte slice. The bytes between
// Position and Limit are the window: free space while the buffer is
// being filled (write mode) and unread data while it is being drained
// (read mode). Flip switches from write mode to read mode and Compact
// switches back, keeping unread bytes.
//
// The zero value is an empty buffer with no capacity.
type Buffer struct {
	buf []byte
	pos int
	lim int
}

// NewBuffer returns a buffer in write mode with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		panic(fmt.Sprintf("procio: negative buffer capacity %d", capacity))
	}
	return &Buffer{buf: make([]byte, capacity), lim: capacity}
}

// Wrap returns a buffer in read mode over p. The buffer shares p's
// storage.
func Wrap(p []byte) *Buffer {
	return &Buffer{buf: p, lim: len(p)}
}

// WrapString returns a buffer in read mode holding a copy of s.
func WrapString(s string) *Buffer {
	return Wrap([]byte(s))
}

// Cap returns the capacity of the underlying storage.
func (b *Buffer) Cap() int { return len(b.buf) }

// Position returns the cursor.
func (b *Buffer) Position() int { return b.pos }

// SetPosition moves the cursor. It panics unless 0 <= pos <= Limit.
func (b *Buffer) SetPosition(pos int) {
	if pos < 0 || pos > b.lim {
		panic(fmt.Sprintf("procio: position %d out of range [0, %d]", pos, b.lim))
	}
	b.pos = pos
}

// Limit returns the end of the window.
func (b *Buffer) Limit() int { return b.lim }

// SetLimit moves the end of the window, pulling the cursor back if it
// lies beyond the new limit. It panics unless 0 <= lim <= Cap.
func (b *Buffer) SetLimit(lim int) {
	if lim < 0 || lim > len(b.buf) {
		panic(fmt.Sprintf("procio: limit %d out of range [0, %d]", lim, len(b.buf)))
	}
	b.lim = lim
	if b.pos > lim {
		b.pos = lim
	}
}

// Remaining returns the number of bytes between the cursor and the
// limit.
func (b *Buffer) Remaining() int { return b.lim - b.pos }

// HasRemaining reports whether Remaining is positive.
func (b *Buffer) HasRemaining() bool { return b.pos < b.lim }

// Bytes returns the window. Appending to the returned slice never
// writes past the limit.
func (b *Buffer) Bytes() []byte { return b.buf[b.pos:b.lim:b.lim] }

// Clear resets the buffer to write mode over its whole capacity.
func (b *Buffer) Clear() {
	b.pos = 0
	b.lim = len(b.buf)
}

// Flip switches from write mode to read mode: the bytes written so far
// become the window.
func (b *Buffer) Flip() {
	b.lim = b.pos
	b.pos = 0
}

// Rewind moves the cursor back to the start, keeping the limit.
func (b *Buffer) Rewind() { b.pos = 0 }

// Compact moves the unread bytes to the start of the storage and
// switches to write mode after them.
func (b *Buffer) Compact() {
	n := copy(b.buf, b.buf[b.pos:b.lim])
	b.pos = n
	b.lim = len(b.buf)
}

// Skip advances the cursor by n bytes. It panics unless
// 0 <= n <= Remaining.
func (b *Buffer) Skip(n int) {
	if n < 0 || n > b.Remaining() {
		panic(fmt.Sprintf("procio: skip %d out of range [0, %d]", n, b.Remaining()))
	}
	b.pos += n
}

// Discard drops the window and returns how many bytes it held.
func (b *Buffer) Discard() int {
	n := b.Remaining()
	b.pos = b.lim
	return n
}

// Put copies as much of p as fits into the window and returns the
// number of bytes copied.
func (b *Buffer) Put(p []byte) int {
	n := copy(b.buf[b.pos:b.lim], p)
	b.pos += n
	return n
}

// PutString is Put for a string.
func (b *Buffer) PutString(s string) int {
	n := copy(b.buf[b.pos:b.lim], s)
	b.pos += n
	return n
}

// PutBuffer copies min(b.Remaining(), src.Remaining()) bytes from src
// into b, advancing both cursors, and returns the count.
func (b *Buffer) PutBuffer(src *Buffer) int {
	n := copy(b.buf[b.pos:b.lim], src.buf[src.pos:src.lim])
	b.pos += n
	src.pos += n
	return n
}

// Duplicate returns a buffer sharing b's storage with an independent
// cursor and limit.
func (b *Buffer) Duplicate() *Buffer {
	d := *b
	return &d
}

// Read drains the window into p.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.HasRemaining() {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:b.lim])
	b.pos += n
	return n, nil
}

// ReadByte drains one byte from the window.
func (b *Buffer) ReadByte() (byte, error) {
	if !b.HasRemaining() {
		return 0, io.EOF
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

// Write fills the window from p. It returns io.ErrShortBuffer when p
// does not fit.
func (b *Buffer) Write(p []byte) (int, error) {
	n := b.Put(p)
	if n < len(p) {
		return n, io.ErrShortBuffer
	}
	return n, nil
}

// WriteTo drains the window into w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for b.HasRemaining() {
		n, err := w.Write(b.buf[b.pos:b.lim])
		b.pos += n
		total += int64(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
