package process

import (
	"context"
	"fmt"
	"io"

	"github.com/webriots/procio"
)

// InputKind names the kind of source a Builder feeds to stdin.
type InputKind uint8

const (
	InputNone InputKind = iota
	InputString
	InputBytes
	InputReader
	InputFile
	InputText
	InputInteractive
	InputPipe
	InputSource
)

var inputKindNames = [...]string{
	InputNone:        "none",
	InputString:      "string",
	InputBytes:       "bytes",
	InputReader:      "reader",
	InputFile:        "file",
	InputText:        "text",
	InputInteractive: "interactive",
	InputPipe:        "pipe",
	InputSource:      "source",
}

func (k InputKind) String() string {
	if int(k) < len(inputKindNames) {
		return inputKindNames[k]
	}
	return fmt.Sprintf("InputKind(%d)", uint8(k))
}

// OutputKind names the kind of sink a Builder attaches to stdout or
// stderr.
type OutputKind uint8

const (
	OutputDiscard OutputKind = iota
	OutputText
	OutputWriter
	OutputFile
	OutputTextWriter
	OutputPipe
	OutputTee
	OutputSink
)

var outputKindNames = [...]string{
	OutputDiscard:    "discard",
	OutputText:       "text",
	OutputWriter:     "writer",
	OutputFile:       "file",
	OutputTextWriter: "text-writer",
	OutputPipe:       "pipe",
	OutputTee:        "tee",
	OutputSink:       "sink",
}

func (k OutputKind) String() string {
	if int(k) < len(outputKindNames) {
		return outputKindNames[k]
	}
	return fmt.Sprintf("OutputKind(%d)", uint8(k))
}

// producers is implemented by the relays a Builder registers with:
// procio.Pipe and procio.Tee.
type producers interface {
	NewOutput() procio.ByteSink
}

// Builder describes a command and the adapters for its streams. By
// default the command gets no input and both output streams are
// discarded. Stdout and stderr join a pipe or tee only when the
// command starts, and leave it again if the command fails to start.
type Builder struct {
	argv   []string
	opts   []CommandOption
	engine *Engine

	inKind  InputKind
	outKind OutputKind
	errKind OutputKind
	stdin   procio.ByteSource
	stdout  procio.ByteSink
	stderr  procio.ByteSink
	outTo   producers
	errTo   producers

	// stderr shares the stdout sink unless stderr was configured
	shareStdout bool
}

// Command returns a Builder for argv.
func Command(argv ...string) *Builder {
	return &Builder{argv: argv}
}

// Engine sets the engine that starts the command.
func (b *Builder) Engine(e *Engine) *Builder {
	b.engine = e
	return b
}

// Dir sets the working directory of the command.
func (b *Builder) Dir(dir string) *Builder {
	b.opts = append(b.opts, WithDir(dir))
	return b
}

// Env adds an environment variable on top of the inherited
// environment.
func (b *Builder) Env(key, value string) *Builder {
	b.opts = append(b.opts, WithEnv(key+"="+value))
	return b
}

// Argv returns the command line.
func (b *Builder) Argv() []string { return b.argv }

// InputKind returns the kind of the configured stdin source.
func (b *Builder) InputKind() InputKind { return b.inKind }

// OutputKind returns the kind of the configured stdout sink.
func (b *Builder) OutputKind() OutputKind { return b.outKind }

// ErrorsKind returns the kind of the configured stderr sink.
func (b *Builder) ErrorsKind() OutputKind { return b.errKind }

func (b *Builder) input(kind InputKind, src procio.ByteSource) *Builder {
	b.inKind, b.stdin = kind, src
	return b
}

func (b *Builder) output(kind OutputKind, sink procio.ByteSink, to producers) *Builder {
	b.outKind, b.stdout, b.outTo = kind, sink, to
	return b
}

func (b *Builder) errors(kind OutputKind, sink procio.ByteSink, to producers) *Builder {
	b.errKind, b.stderr, b.errTo = kind, sink, to
	return b
}

// WithNoInput gives the command an empty stdin, which is closed as
// soon as the command starts.
func (b *Builder) WithNoInput() *Builder { return b.input(InputNone, procio.NoInput) }

// WithStringInput feeds s.
func (b *Builder) WithStringInput(s string) *Builder {
	return b.input(InputString, procio.FromString(s))
}

// WithBytesInput feeds p, which must not change until the command
// has consumed it.
func (b *Builder) WithBytesInput(p []byte) *Builder {
	return b.input(InputBytes, procio.FromBytes(p))
}

// WithReaderInput feeds r; see procio.FromReader for eager.
func (b *Builder) WithReaderInput(r io.Reader, eager bool) *Builder {
	return b.input(InputReader, procio.FromReader(r, eager))
}

// WithFileInput feeds the named file.
func (b *Builder) WithFileInput(name string) *Builder {
	return b.input(InputFile, procio.FromFile(name))
}

// WithTextInput feeds the text read from r as UTF-8.
func (b *Builder) WithTextInput(r io.Reader) *Builder {
	return b.input(InputText, procio.FromText(r))
}

// WithInteractiveInput feeds whatever is written to in.
func (b *Builder) WithInteractiveInput(in *procio.Interactive) *Builder {
	return b.input(InputInteractive, in)
}

// WithPipeInput feeds the output of the processes writing to p.
func (b *Builder) WithPipeInput(p *procio.Pipe) *Builder {
	return b.input(InputPipe, p)
}

// WithSourceInput feeds src.
func (b *Builder) WithSourceInput(src procio.ByteSource) *Builder {
	return b.input(InputSource, src)
}

// WithDiscardOutput drops stdout.
func (b *Builder) WithDiscardOutput() *Builder {
	return b.output(OutputDiscard, procio.Discard, nil)
}

// WithTextOutput decodes stdout as UTF-8 and appends it to w.
func (b *Builder) WithTextOutput(w io.StringWriter) *Builder {
	return b.output(OutputText, procio.ToText(w), nil)
}

// WithWriterOutput copies stdout to w, closing it at the end of the
// stream when autoClose is set.
func (b *Builder) WithWriterOutput(w io.Writer, autoClose bool) *Builder {
	return b.output(OutputWriter, procio.ToWriter(w, autoClose), nil)
}

// WithFileOutput writes stdout to the named file.
func (b *Builder) WithFileOutput(name string) *Builder {
	return b.output(OutputFile, procio.ToFile(name), nil)
}

// WithTextWriterOutput copies stdout to w as sanitized UTF-8.
func (b *Builder) WithTextWriterOutput(w io.Writer, autoClose bool) *Builder {
	return b.output(OutputTextWriter, procio.ToTextWriter(w, autoClose), nil)
}

// WithPipeOutput makes stdout a producer of p once the command starts.
func (b *Builder) WithPipeOutput(p *procio.Pipe) *Builder {
	return b.output(OutputPipe, nil, p)
}

// WithTeeOutput makes stdout a producer of t once the command starts.
func (b *Builder) WithTeeOutput(t *procio.Tee) *Builder {
	return b.output(OutputTee, nil, t)
}

// WithSinkOutput sends stdout to sink.
func (b *Builder) WithSinkOutput(sink procio.ByteSink) *Builder {
	return b.output(OutputSink, sink, nil)
}

// WithDiscardErrors drops stderr.
func (b *Builder) WithDiscardErrors() *Builder {
	return b.errors(OutputDiscard, procio.Discard, nil)
}

// WithTextErrors decodes stderr as UTF-8 and appends it to w.
func (b *Builder) WithTextErrors(w io.StringWriter) *Builder {
	return b.errors(OutputText, procio.ToText(w), nil)
}

// WithWriterErrors copies stderr to w.
func (b *Builder) WithWriterErrors(w io.Writer, autoClose bool) *Builder {
	return b.errors(OutputWriter, procio.ToWriter(w, autoClose), nil)
}

// WithFileErrors writes stderr to the named file.
func (b *Builder) WithFileErrors(name string) *Builder {
	return b.errors(OutputFile, procio.ToFile(name), nil)
}

// WithTextWriterErrors copies stderr to w as sanitized UTF-8.
func (b *Builder) WithTextWriterErrors(w io.Writer, autoClose bool) *Builder {
	return b.errors(OutputTextWriter, procio.ToTextWriter(w, autoClose), nil)
}

// WithPipeErrors makes stderr a producer of p once the command starts.
func (b *Builder) WithPipeErrors(p *procio.Pipe) *Builder {
	return b.errors(OutputPipe, nil, p)
}

// WithTeeErrors makes stderr a producer of t once the command starts.
func (b *Builder) WithTeeErrors(t *procio.Tee) *Builder {
	return b.errors(OutputTee, nil, t)
}

// WithSinkErrors sends stderr to sink.
func (b *Builder) WithSinkErrors(sink procio.ByteSink) *Builder {
	return b.errors(OutputSink, sink, nil)
}

// Start spawns the command. If it cannot be spawned, the outputs it
// registered with pipes and tees are closed so their consumers still
// see the end of the stream.
func (b *Builder) Start(ctx context.Context) (*Execution, error) {
	e := b.engine
	if e == nil {
		e = Default()
	}

	var registered []procio.ByteSink
	register := func(sink procio.ByteSink, to producers) procio.ByteSink {
		if to == nil {
			return sink
		}
		out := to.NewOutput()
		registered = append(registered, out)
		return out
	}
	stdout := register(b.stdout, b.outTo)
	stderr := register(b.stderr, b.errTo)
	if b.shareStdout && stdout != nil && stderr == nil {
		mux := procio.NewMultiplexer(stdout.OnOutput)
		stdout, stderr = mux.NewOutput(), mux.NewOutput()
	}

	exec, err := e.Exec(ctx, b.argv, b.stdin, stdout, stderr, b.opts...)
	if err != nil {
		for _, out := range registered {
			_ = out.OnOutput(procio.NewBuffer(0), true)
		}
		return nil, err
	}
	return exec, nil
}

// Run spawns the command and waits for it to exit.
func (b *Builder) Run(ctx context.Context) (int, error) {
	exec, err := b.Start(ctx)
	if err != nil {
		return -1, err
	}
	return exec.Wait(ctx)
}
