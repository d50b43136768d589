package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webriots/procio"
	"github.com/webriots/procio/internal/config"
	"github.com/webriots/procio/internal/logging"
	"github.com/webriots/procio/internal/metrics"
	"github.com/webriots/procio/process"
	"go.uber.org/zap"
)

const Version = "0.1.0"

const usage = `
Usage:
	procio run   [--input=FILE] [--output=FILE] [--errors=FILE] [--text] [--metrics=ADDR] [--] <argv>...
	procio pipe  [--input=FILE] [--output=FILE] [--tee=FILE] [--metrics=ADDR] [--] <argv>...
	procio --version

Options:
	-i FILE, --input=FILE     Feed FILE to the first command, default is stdin.
	-o FILE, --output=FILE    Write the last command's stdout to FILE, default is stdout.
	-e FILE, --errors=FILE    Write stderr to FILE, default is stderr.
	-t, --text                Transcode input and output as UTF-8 text.
	--tee=FILE                Copy the first command's stdout to FILE.
	--metrics=ADDR            Serve Prometheus metrics on ADDR while running.

Commands of a pipeline are separated by '::', as in
	procio pipe -- cat notes.txt :: grep TODO :: wc -l
`

var args struct {
	input   string
	output  string
	errors  string
	tee     string
	metrics string
	text    bool
	stages  [][]string
}

type runtimeEnv struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *process.Engine
}

func main() {
	d, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "procio: parse arguments failed:", err)
		os.Exit(2)
	}

	args.input, _ = d["--input"].(string)
	args.output, _ = d["--output"].(string)
	args.errors, _ = d["--errors"].(string)
	args.tee, _ = d["--tee"].(string)
	args.metrics, _ = d["--metrics"].(string)
	args.text, _ = d["--text"].(bool)

	argv, _ := d["<argv>"].([]string)
	if pipe, _ := d["pipe"].(bool); pipe {
		args.stages, err = splitStages(argv)
	} else {
		args.stages = [][]string{argv}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "procio:", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "procio:", err)
		os.Exit(2)
	}
	if args.metrics == "" {
		args.metrics = cfg.MetricsAddr
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "procio: build logger:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	env := &runtimeEnv{
		cfg: cfg,
		log: log,
		engine: process.NewEngine(
			process.WithConfig(cfg),
			process.WithLogger(log),
			process.WithMetrics(metrics.New(reg)),
		),
	}

	var srv *http.Server
	if args.metrics != "" {
		srv = serveMetrics(args.metrics, reg, log)
	}

	code, err := env.pipeline(ctx)
	if err != nil {
		log.Error("pipeline failed", zap.Error(err))
		if code == 0 {
			code = 1
		}
	}
	if srv != nil {
		shutdown(srv)
	}
	stop()
	log.Sync()
	os.Exit(code)
}

// splitStages splits argv into the commands of a pipeline.
func splitStages(argv []string) ([][]string, error) {
	var (
		stages [][]string
		cur    []string
	)
	for _, arg := range argv {
		if arg != "::" {
			cur = append(cur, arg)
			continue
		}
		if len(cur) == 0 {
			return nil, errors.New("empty command in pipeline")
		}
		stages = append(stages, cur)
		cur = nil
	}
	if len(cur) == 0 {
		return nil, errors.New("empty command in pipeline")
	}
	return append(stages, cur), nil
}

// pipeline starts every stage, connecting each stdout to the next
// stdin, and returns the exit code of the last stage.
func (env *runtimeEnv) pipeline(ctx context.Context) (int, error) {
	var (
		execs []*process.Execution
		input = env.source()
		tee   *procio.Tee
	)
	// Every stage registers with the stderr multiplexer before any of
	// them starts, so the shared sink closes only after the last one.
	stderr := env.errorSinks(len(args.stages))
	env.log.Debug("starting pipeline", zap.Int("stages", len(args.stages)))

	for i, argv := range args.stages {
		last := i == len(args.stages)-1
		b := process.Command(argv...).
			Engine(env.engine).
			WithSourceInput(input).
			WithSinkErrors(stderr[i])

		var next *procio.Pipe
		switch {
		case i == 0 && args.tee != "":
			tee = procio.NewTee()
			tee.AddSink(procio.ToFile(args.tee))
			b.WithTeeOutput(tee)
			if last {
				tee.AddSink(env.sink())
			} else {
				next = tee.Pipe(env.cfg.PipeCapacity)
			}
		case last:
			b.WithSinkOutput(env.sink())
		default:
			next = procio.NewPipeSize(env.cfg.PipeCapacity)
			b.WithPipeOutput(next)
		}

		ex, err := b.Start(ctx)
		if err != nil {
			env.abort(ctx, execs, stderr[i:])
			return 127, err
		}
		execs = append(execs, ex)
		input = next
	}

	codes, err := process.WaitAll(ctx, execs...)
	if tee != nil {
		err = errors.Join(err, tee.Err())
	}
	return codes[len(codes)-1], err
}

// abort kills the stages already running and closes the stderr
// outputs of the stages that never started, so the shared error sink
// is flushed and closed.
func (env *runtimeEnv) abort(ctx context.Context, execs []*process.Execution, unstarted []procio.ByteSink) {
	for _, s := range unstarted {
		_ = s.OnOutput(procio.NewBuffer(0), true)
	}
	for _, ex := range execs {
		if err := ex.Process().Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			env.log.Warn("kill stage failed", zap.Error(err))
		}
	}
	if _, err := process.WaitAll(ctx, execs...); err != nil {
		env.log.Debug("aborted stages reported errors", zap.Error(err))
	}
}

func (env *runtimeEnv) source() procio.ByteSource {
	switch {
	case args.input != "":
		return procio.FromFile(args.input)
	case args.text:
		return procio.FromText(os.Stdin)
	default:
		return procio.FromReader(os.Stdin, true)
	}
}

func (env *runtimeEnv) sink() procio.ByteSink {
	switch {
	case args.output != "":
		return procio.ToFile(args.output)
	case args.text:
		return procio.ToTextWriter(os.Stdout, false)
	default:
		return procio.ToWriter(os.Stdout, false)
	}
}

func (env *runtimeEnv) errorSinks(n int) []procio.ByteSink {
	var sink procio.ByteSink
	switch {
	case args.errors != "":
		sink = procio.ToFile(args.errors)
	case args.text:
		sink = procio.ToTextWriter(os.Stderr, false)
	default:
		sink = procio.ToWriter(os.Stderr, false)
	}

	mux := procio.NewMultiplexer(sink.OnOutput)
	sinks := make([]procio.ByteSink, n)
	for i := range sinks {
		sinks[i] = mux.NewOutput()
	}
	return sinks
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
