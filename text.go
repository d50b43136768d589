package procio

import (
	"fmt"
	"io"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textDecoder turns raw output bytes into well-formed UTF-8. A rune
// split across chunks is held back until the rest of it arrives;
// ill-formed sequences become U+FFFD.
type textDecoder struct {
	t     transform.Transformer
	carry []byte
	out   []byte
}

func newTextDecoder() *textDecoder {
	return &textDecoder{t: unicode.UTF8.NewDecoder()}
}

// decode returns the text decoded from the held-back bytes followed by
// p. The result is valid until the next call. When final is set,
// nothing is held back.
func (d *textDecoder) decode(p []byte, final bool) ([]byte, error) {
	src := append(d.carry, p...)
	out := slices.Grow(d.out[:0], len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := d.t.Transform(out[len(out):cap(out)], src, final)
		out = out[:len(out)+nDst]
		src = src[nSrc:]
		switch err {
		case nil:
			d.carry = d.carry[:0]
			d.out = out
			return out, nil
		case transform.ErrShortSrc:
			d.carry = append(d.carry[:0], src...)
			d.out = out
			return out, nil
		case transform.ErrShortDst:
			out = slices.Grow(out, len(src)+utf8.UTFMax)
		default:
			return nil, fmt.Errorf("procio: decode text: %w", err)
		}
	}
}

type textSource struct {
	r    io.Reader
	enc  transform.Transformer
	raw  *Buffer
	out  *Buffer
	eof  bool
	tail bool
	proc Process
}

// FromText returns a ByteSource that feeds the UTF-8 encoding of the
// text read from r. Ill-formed input becomes U+FFFD. The source asks
// to be called again while it holds encoded bytes or r reports
// buffered data through a Buffered or Len method.
func FromText(r io.Reader) ByteSource {
	s := &textSource{
		r:   r,
		enc: unicode.UTF8.NewEncoder(),
		raw: NewBuffer(DefaultBufferCapacity),
		out: NewBuffer(DefaultBufferCapacity),
	}
	s.raw.Flip()
	s.out.Flip()
	return s
}

func (s *textSource) OnStart(p Process) {
	s.proc = p
	p.WantWrite()
}

func (s *textSource) OnInput(dst *Buffer) (Status, error) {
	if !s.out.HasRemaining() {
		if !s.raw.HasRemaining() || s.tail {
			if err := s.fill(); err != nil {
				return Finished, err
			}
		}
		if err := s.encode(); err != nil {
			return Finished, err
		}
	}
	dst.PutBuffer(s.out)

	switch {
	case s.out.HasRemaining(), s.raw.HasRemaining(), !s.eof && buffered(s.r):
		return NeedMore, nil
	case s.eof:
		return Finished, nil
	}
	if s.proc != nil {
		s.proc.WantWrite()
	}
	return Enough, nil
}

// fill reads more raw text behind whatever is left unencoded.
func (s *textSource) fill() error {
	if s.eof {
		return nil
	}
	s.raw.Compact()
	n, err := s.r.Read(s.raw.Bytes())
	s.raw.Skip(n)
	s.raw.Flip()
	switch {
	case err == io.EOF:
		s.eof = true
	case err != nil:
		return fmt.Errorf("procio: read text: %w", err)
	}
	return nil
}

func (s *textSource) encode() error {
	s.out.Clear()
	nDst, nSrc, err := s.enc.Transform(s.out.Bytes(), s.raw.Bytes(), s.eof)
	s.out.Skip(nDst)
	s.raw.Skip(nSrc)
	s.out.Flip()
	s.tail = err == transform.ErrShortSrc
	if err != nil && err != transform.ErrShortSrc && err != transform.ErrShortDst {
		return fmt.Errorf("procio: encode text: %w", err)
	}
	return nil
}

func buffered(r io.Reader) bool {
	switch r := r.(type) {
	case interface{ Buffered() int }:
		return r.Buffered() > 0
	case interface{ Len() int }:
		return r.Len() > 0
	}
	return false
}
