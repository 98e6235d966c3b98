package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/crankbench/internal/barrier"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/stopwatch"
)

// Executor runs a fixed number of workload iterations across a fixed pool of
// workers. An Executor is single use.
type Executor struct {
	factory Factory
	opt     Options

	counter *RunCounter
	results ResultAggregator
	errs    ErrorBox
	wall    *stopwatch.Stopwatch
	latency *metrics.Recorder

	started   atomic.Bool
	abandoned atomic.Bool // a claimed run was cancelled before it completed
	err       error
}

// New returns an executor with latency timing enabled and a random seed.
func New(factory Factory, runs, threads int) *Executor {
	return NewWithOptions(factory, Options{Runs: runs, Threads: threads, LatencyTiming: true})
}

func NewWithOptions(factory Factory, opt Options) *Executor {
	opt.normalize()
	return &Executor{
		factory: factory,
		opt:     opt,
		counter: NewRunCounter(opt.Runs),
		wall:    stopwatch.New(),
		latency: metrics.NewRecorder(),
	}
}

// Run executes a workload once with latency timing disabled.
func Run(ctx context.Context, factory Factory, runs, threads int) (int64, error) {
	exec := New(factory, runs, threads)
	exec.SetLatencyTiming(false)
	return exec.Run(ctx)
}

// SetSeed overrides the base seed. It must be called before Run. A zero
// seed picks a new random seed, as in Options.
func (e *Executor) SetSeed(seed int64) {
	if seed == 0 {
		seed = randomSeed()
	}
	e.opt.Seed = seed
}

// SetLatencyTiming toggles per-iteration timing. It must be called before Run.
func (e *Executor) SetLatencyTiming(enabled bool) {
	e.opt.LatencyTiming = enabled
}

// Run executes every iteration and returns the sum of the counts reported
// by the workloads. On failure it returns 0 and the first captured error.
func (e *Executor) Run(ctx context.Context) (int64, error) {
	if !e.started.CompareAndSwap(false, true) {
		return 0, &HarnessError{Phase: PhaseSetup, Err: ErrAlreadyRun}
	}

	name := e.factory.Name()
	log := e.opt.Logger.With(zap.String("workload", name))

	workloads := make([]Workload, e.opt.Threads)
	for i := range workloads {
		w, err := e.factory.NewWorkload(e.opt.Seed + int64(i))
		if err != nil {
			e.err = &WorkloadError{Worker: workerLabel(name, i), Err: fmt.Errorf("create workload: %w", err)}
			return 0, e.err
		}
		workloads[i] = w
	}

	ctx, span := e.opt.Tracer.Start(ctx, "harness.run", trace.WithAttributes(
		attribute.String("workload", name),
		attribute.Int("threads", e.opt.Threads),
		attribute.Int("runs", e.opt.Runs),
		attribute.Int64("seed", e.opt.Seed),
	))
	defer span.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := barrier.New(e.opt.Threads+1, toggle(e.wall))
	workers := make([]*worker, len(workloads))
	for i, wl := range workloads {
		w := &worker{
			label:    workerLabel(name, i),
			workload: wl,
			exec:     e,
			barrier:  b,
		}
		w.log = log.With(zap.String("worker", w.label))
		if e.opt.LatencyTiming {
			w.latency = metrics.NewRecorder()
		}
		workers[i] = w
		go w.run(runCtx)
	}

	if err := b.Await(ctx); err != nil {
		cancel()
		return e.fail(span, log, &HarnessError{Phase: PhaseStart, Err: err})
	}
	span.AddEvent("barrier.start")
	log.Debug("workers released", zap.Int("threads", e.opt.Threads), zap.Int("runs", e.opt.Runs))

	if err := e.awaitCompletion(ctx, b); err != nil {
		cancel()
		return e.fail(span, log, err)
	}
	span.AddEvent("barrier.done")

	for _, w := range workers {
		if w.latency != nil {
			e.latency.Merge(w.latency)
		}
	}

	if err := e.errs.Err(); err != nil {
		return e.fail(span, log, err)
	}
	if executed := e.RunsExecuted(); executed < e.RunsTarget() || e.abandoned.Load() {
		err := fmt.Errorf("%w (%d of %d)", ErrIncompleteRun, executed, e.RunsTarget())
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%d of %d): %w", ErrIncompleteRun, executed, e.RunsTarget(), ctxErr)
		}
		return e.fail(span, log, &HarnessError{Phase: PhaseCompletion, Err: err})
	}

	sum := e.results.Sum()
	span.SetAttributes(
		attribute.Int("runs_executed", e.RunsExecuted()),
		attribute.Int64("result_sum", sum),
	)
	log.Info("harness run completed",
		zap.Int("runs", e.RunsExecuted()),
		zap.Int64("result_sum", sum),
		zap.Duration("duration", e.Duration()),
		zap.Float64("throughput", e.MeanThroughput()),
	)
	return sum, nil
}

// awaitCompletion joins the second barrier phase. Cancelling ctx does not
// abandon the workers; only the completion timeout does.
func (e *Executor) awaitCompletion(ctx context.Context, b *barrier.Barrier) error {
	waitCtx := context.WithoutCancel(ctx)
	if e.opt.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, e.opt.CompletionTimeout)
		defer cancel()
	}
	err := b.Await(waitCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrCompletionTimeout, e.opt.CompletionTimeout, err)
	}
	return &HarnessError{Phase: PhaseCompletion, Err: err}
}

// fail records err as the outcome of the run. The barrier is tripped twice
// or broken by now, so the trip action no longer touches the wall clock.
func (e *Executor) fail(span trace.Span, log *zap.Logger, err error) (int64, error) {
	if e.wall.Running() {
		e.wall.Stop()
	}
	e.err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Warn("harness run failed",
		zap.String("kind", KindOf(err).String()),
		zap.Int("runs_executed", e.RunsExecuted()),
		zap.Error(err),
	)
	return 0, err
}

// toggle starts the stopwatch on the first trip and stops it on the second.
func toggle(sw *stopwatch.Stopwatch) func() {
	return func() {
		if sw.Running() {
			sw.Stop()
			return
		}
		sw.Start()
	}
}

func workerLabel(name string, index int) string {
	return fmt.Sprintf("%s:%d", name, index)
}

// Err returns the error returned by Run, if any.
func (e *Executor) Err() error {
	return e.err
}

func (e *Executor) Factory() Factory {
	return e.factory
}

func (e *Executor) Seed() int64 {
	return e.opt.Seed
}

func (e *Executor) Threads() int {
	return e.opt.Threads
}

// Duration returns the wall-clock time between the two barrier trips.
func (e *Executor) Duration() time.Duration {
	return e.wall.Duration()
}

func (e *Executor) RunsTarget() int {
	return e.counter.Target()
}

// RunsExecuted returns the number of claimed runs. It is safe to call while
// Run is in progress.
func (e *Executor) RunsExecuted() int {
	return e.counter.Last()
}

func (e *Executor) ResultSum() int64 {
	return e.results.Sum()
}

// MeanThroughput returns executed runs per second, or 0 for a zero duration.
func (e *Executor) MeanThroughput() float64 {
	d := e.Duration()
	if d <= 0 {
		return 0
	}
	return float64(e.RunsExecuted()) / d.Seconds()
}

// MeanLatency returns the average measured iteration latency, or 0 when no
// runs were executed.
func (e *Executor) MeanLatency() time.Duration {
	runs := e.RunsExecuted()
	if runs == 0 {
		return 0
	}
	return e.results.Latency() / time.Duration(runs)
}

// Latency summarizes the merged per-worker latency histograms.
func (e *Executor) Latency() metrics.Latency {
	return e.latency.Latency()
}

// Stats summarizes the run for reporting.
func (e *Executor) Stats() metrics.Stats {
	run := metrics.Run{
		Workload:      e.factory.Name(),
		Threads:       e.opt.Threads,
		Seed:          e.opt.Seed,
		RunsTarget:    e.RunsTarget(),
		RunsExecuted:  e.RunsExecuted(),
		ResultSum:     e.ResultSum(),
		Duration:      e.Duration(),
		LatencyTiming: e.opt.LatencyTiming,
		LatencySum:    e.results.Latency(),
		Err:           e.err,
	}
	if e.err != nil {
		run.ErrorKind = KindOf(e.err).String()
	}
	return metrics.Summarize(run, e.Latency())
}
