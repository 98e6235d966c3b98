package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/torosent/crankbench/internal/barrier"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/stopwatch"
)

type worker struct {
	label    string
	workload Workload
	exec     *Executor
	barrier  *barrier.Barrier
	latency  *metrics.Recorder // nil unless latency timing is enabled
	log      *zap.Logger
	current  int
}

func (w *worker) run(ctx context.Context) {
	if err := w.barrier.Await(ctx); err != nil {
		w.log.Debug("start barrier failed", zap.Error(err))
		return
	}
	// The completion phase must be joined on every exit path, including
	// runtime.Goexit from inside the workload.
	finished := false
	defer func() {
		if !finished {
			w.exec.errs.TrySet(&FatalError{Worker: w.label, Run: w.current, Value: ErrGoexit, Stack: debug.Stack()})
		}
		if err := w.barrier.Await(context.WithoutCancel(ctx)); err != nil {
			w.log.Debug("completion barrier failed", zap.Error(err))
		}
	}()

	executed := w.loop(ctx)
	finished = true
	w.log.Debug("worker finished", zap.Int("executed", executed))
}

// loop executes iterations until the runs are exhausted, a failure has been
// captured or ctx ends. Another worker's failure is only noticed between
// iterations.
func (w *worker) loop(ctx context.Context) int {
	e := w.exec
	done := ctx.Done()

	var sw *stopwatch.Stopwatch
	if w.latency != nil {
		sw = stopwatch.New()
	}

	executed := 0
	for !e.errs.Failed() {
		select {
		case <-done:
			return executed
		default:
		}

		run, ok := e.counter.Next()
		if !ok {
			return executed
		}
		w.current = run
		if sw != nil {
			sw.Start()
		}
		count, err := w.iterate(ctx, run)
		if sw != nil {
			sw.Stop()
		}
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// Cancelled mid-iteration; the claimed run was not executed.
				e.abandoned.Store(true)
				return executed
			}
			if e.errs.TrySet(err) {
				w.log.Warn("workload failed", zap.Int("run", run), zap.Error(err))
			}
			return executed
		}
		executed++
		e.results.Add(count)
		if sw != nil {
			e.results.AddLatency(sw.Delta())
			w.latency.Record(sw.Delta())
		}
	}
	return executed
}

func (w *worker) iterate(ctx context.Context, run int) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			count = 0
			err = &FatalError{Worker: w.label, Run: run, Value: r, Stack: debug.Stack()}
		}
	}()

	count, err = w.workload.RunIteration(ctx, run)
	if err != nil {
		return 0, &WorkloadError{Worker: w.label, Run: run, Err: err}
	}
	if count < 0 {
		return 0, &WorkloadError{Worker: w.label, Run: run, Err: fmt.Errorf("%w: %d", ErrNegativeResult, count)}
	}
	return count, nil
}
