package procio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// NoInput is a ByteSource with no data. It asks for one call on start
// and finishes on it, so the child sees end of input right away.
var NoInput ByteSource = noInput{}

type noInput struct{}

func (noInput) OnStart(p Process) { p.WantWrite() }

func (noInput) OnInput(*Buffer) (Status, error) { return Finished, nil }

type bufferSource struct {
	src *Buffer
}

// FromBuffer returns a ByteSource that feeds the unread bytes of src.
// The source owns src from then on.
func FromBuffer(src *Buffer) ByteSource {
	return &bufferSource{src: src}
}

// FromBytes returns a ByteSource that feeds p. p must not be modified
// until the source has finished.
func FromBytes(p []byte) ByteSource {
	return FromBuffer(Wrap(p))
}

// FromString returns a ByteSource that feeds s.
func FromString(s string) ByteSource {
	return FromBuffer(WrapString(s))
}

func (s *bufferSource) OnStart(p Process) { p.WantWrite() }

func (s *bufferSource) OnInput(dst *Buffer) (Status, error) {
	dst.PutBuffer(s.src)
	if s.src.HasRemaining() {
		return NeedMore, nil
	}
	return Finished, nil
}

type readerSource struct {
	r     io.Reader
	eager bool
	proc  Process
}

// FromReader returns a ByteSource performing one Read on r per call.
// An eager source asks to be called again straight away; otherwise it
// yields to the engine after each read and schedules a later call with
// WantWrite. io.EOF finishes input, keeping any bytes returned with it.
func FromReader(r io.Reader, eager bool) ByteSource {
	return &readerSource{r: r, eager: eager}
}

func (s *readerSource) OnStart(p Process) {
	s.proc = p
	p.WantWrite()
}

func (s *readerSource) OnInput(dst *Buffer) (Status, error) {
	n, err := s.r.Read(dst.Bytes())
	dst.Skip(n)
	switch {
	case err == io.EOF:
		return Finished, nil
	case err != nil:
		return Finished, fmt.Errorf("procio: read input: %w", err)
	case s.eager:
		return NeedMore, nil
	}
	if s.proc != nil {
		s.proc.WantWrite()
	}
	return Enough, nil
}

type fileSource struct {
	mu   sync.Mutex
	name string
	f    *os.File
	rd   readerSource
	done bool
}

// FromFile returns a ByteSource that feeds the contents of the named
// file. The file is opened on the first call and closed once it has
// been read or a read fails.
func FromFile(name string) ByteSource {
	return &fileSource{name: name}
}

func (s *fileSource) OnStart(p Process) { p.WantWrite() }

func (s *fileSource) OnInput(dst *Buffer) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Finished, nil
	}
	if s.f == nil {
		f, err := os.Open(s.name)
		if err != nil {
			s.done = true
			return Finished, fmt.Errorf("procio: open input: %w", err)
		}
		s.f = f
		s.rd = readerSource{r: f, eager: true}
	}
	status, err := s.rd.OnInput(dst)
	if status == Finished {
		err = errors.Join(err, s.close())
	}
	return status, err
}

// Close releases the file if it is still open.
func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close()
}

func (s *fileSource) close() error {
	s.done = true
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("procio: close input: %w", err)
	}
	return nil
}
