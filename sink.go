package procio

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Discard is a ByteSink that drops everything it receives.
var Discard ByteSink = discard{}

type discard struct{}

func (discard) OnStart(Process) {}

func (discard) OnOutput(src *Buffer, _ bool) error {
	src.Discard()
	return nil
}

type textSink struct {
	mu  sync.Mutex
	w   io.StringWriter
	dec *textDecoder
}

// ToText returns a ByteSink that decodes output as UTF-8 and appends
// the text to w, typically a *strings.Builder. A rune split between
// chunks is written once it is complete.
func ToText(w io.StringWriter) ByteSink {
	return &textSink{w: w, dec: newTextDecoder()}
}

func (s *textSink) OnStart(Process) {}

func (s *textSink) OnOutput(src *Buffer, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.dec.decode(src.Bytes(), closed)
	src.Discard()
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return nil
	}
	if _, err := s.w.WriteString(string(text)); err != nil {
		return fmt.Errorf("procio: write text: %w", err)
	}
	return nil
}

type writerSink struct {
	w         io.Writer
	autoClose bool
}

// ToWriter returns a ByteSink copying output to w. With autoClose set,
// w is closed at the end of the stream if it is an io.Closer.
func ToWriter(w io.Writer, autoClose bool) ByteSink {
	return &writerSink{w: w, autoClose: autoClose}
}

func (s *writerSink) OnStart(Process) {}

func (s *writerSink) OnOutput(src *Buffer, closed bool) error {
	if _, err := src.WriteTo(s.w); err != nil {
		src.Discard()
		return fmt.Errorf("procio: write output: %w", err)
	}
	if closed && s.autoClose {
		return closeWriter(s.w)
	}
	return nil
}

type textWriterSink struct {
	mu        sync.Mutex
	w         io.Writer
	autoClose bool
	dec       *textDecoder
}

// ToTextWriter returns a ByteSink that decodes output as UTF-8 and
// writes the well-formed text to w. With autoClose set, w is closed at
// the end of the stream if it is an io.Closer.
func ToTextWriter(w io.Writer, autoClose bool) ByteSink {
	return &textWriterSink{w: w, autoClose: autoClose, dec: newTextDecoder()}
}

func (s *textWriterSink) OnStart(Process) {}

func (s *textWriterSink) OnOutput(src *Buffer, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.dec.decode(src.Bytes(), closed)
	src.Discard()
	if err != nil {
		return err
	}
	if len(text) > 0 {
		if _, err := s.w.Write(text); err != nil {
			return fmt.Errorf("procio: write text: %w", err)
		}
	}
	if closed && s.autoClose {
		return closeWriter(s.w)
	}
	return nil
}

type fileSink struct {
	mu   sync.Mutex
	name string
	f    *os.File
	done bool
}

// ToFile returns a ByteSink writing output to the named file. The file
// is created, or truncated, when the first chunk arrives and closed at
// the end of the stream.
func ToFile(name string) ByteSink {
	return &fileSink{name: name}
}

func (s *fileSink) OnStart(Process) {}

func (s *fileSink) OnOutput(src *Buffer, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		src.Discard()
		return nil
	}
	if s.f == nil {
		f, err := os.Create(s.name)
		if err != nil {
			src.Discard()
			s.done = true
			return fmt.Errorf("procio: create output: %w", err)
		}
		s.f = f
	}
	if _, err := src.WriteTo(s.f); err != nil {
		src.Discard()
		s.done = true
		s.f.Close()
		return fmt.Errorf("procio: write output: %w", err)
	}
	if !closed {
		return nil
	}
	s.done = true
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("procio: close output: %w", err)
	}
	return nil
}

func closeWriter(w io.Writer) error {
	c, ok := w.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("procio: close output: %w", err)
	}
	return nil
}
