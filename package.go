// Package procio adapts the callback-driven I/O of a child process to
// ordinary Go data sources and sinks. A process engine asks a
// ByteSource to fill its stdin buffer whenever the child can accept
// input, and hands every chunk read from stdout or stderr to a
// ByteSink. The adapters in this package translate those callbacks
// into byte slices, strings, files, readers, writers, text and other
// processes.
//
// Key components:
//
//   - Buffer: A bounded byte window with a cursor and a limit. It is
//     the unit of exchange between an engine and its adapters.
//
//   - ByteSource: Supplies stdin. Each call reports a Status telling
//     the engine whether more input is ready (NeedMore), whether to
//     wait for a later readiness request (Enough), or whether input is
//     complete (Finished).
//
//   - ByteSink: Consumes stdout or stderr chunks together with an
//     end-of-stream flag.
//
//   - Pipe: An unbounded, growable queue connecting the output of one
//     or more processes to the input of another.
//
//   - Multiplexer and Tee: Aggregate several producers into one
//     receiver, and fan one stream out to several independent
//     consumers.
//
//   - Interactive and Generate: Sources fed by the caller at run time,
//     either by writes or by a coroutine producer.
//
// All sources and sinks are driven by a single engine goroutine per
// stream. Pipe, Tee and Interactive are safe for use by several
// goroutines at once.
package procio
