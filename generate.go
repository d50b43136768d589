package procio

import (
	"context"
	"runtime/trace"
	"sync"

	"github.com/webriots/coro"
)

const (
	generateTraceTaskType   = "procio-generate"
	generateTraceRegionType = "procio-generate-region"
	generateTraceCategory   = "procio"
)

type generator struct {
	mu      sync.Mutex
	ctx     context.Context
	tracer  *trace.Task
	resume  func(struct{}) ([]byte, bool)
	cancel  func()
	pending []byte
	done    bool
}

// Generate returns a ByteSource whose bytes are produced by fn running
// as a coroutine. fn passes chunks to yield; each call to OnInput
// resumes fn until the engine's buffer is full, and input finishes
// once fn returns. A chunk passed to yield may be reused by fn after
// yield returns.
//
// Closing the source cancels fn if it has not returned yet.
func Generate(fn func(yield func([]byte))) ByteSource {
	g := &generator{}
	g.ctx, g.tracer = trace.NewTask(context.Background(), generateTraceTaskType)
	g.resume, g.cancel = coro.New(
		func(yield func([]byte) struct{}, _ func() struct{}) (z []byte) {
			region := trace.StartRegion(g.ctx, generateTraceRegionType)
			defer region.End()

			fn(func(p []byte) {
				if len(p) > 0 {
					yield(p)
				}
			})

			return
		},
	)
	return g
}

func (g *generator) OnStart(p Process) { p.WantWrite() }

func (g *generator) OnInput(dst *Buffer) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dst.HasRemaining() {
		if len(g.pending) > 0 {
			n := dst.Put(g.pending)
			g.pending = g.pending[n:]
			continue
		}
		if g.done {
			break
		}
		g.log("RESUME")
		chunk, ok := g.resume(struct{}{})
		if !ok {
			g.finish()
			break
		}
		g.pending = chunk
	}

	if len(g.pending) > 0 || !g.done {
		return NeedMore, nil
	}
	return Finished, nil
}

// Close abandons the producer if it has not returned yet.
func (g *generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.done {
		g.log("CANCEL")
		g.cancel()
		g.finish()
	}
	g.pending = nil
	return nil
}

func (g *generator) finish() {
	g.done = true
	g.log("DONE")
	g.tracer.End()
}

func (g *generator) log(msg string) {
	if trace.IsEnabled() {
		trace.Log(g.ctx, generateTraceCategory, msg)
	}
}
