package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/torosent/crankbench/internal/harness"
)

// ErrInjected is the failure raised by the failing workload.
var ErrInjected = errors.New("injected failure")

func newNoop(Params) (harness.Factory, error) {
	return harness.NewFactory("noop", func(int64) (harness.Workload, error) {
		return harness.WorkloadFunc(func(context.Context, int) (int, error) {
			return 1, nil
		}), nil
	}), nil
}

// fastRandom exercises a seeded PRNG: every iteration reseeds from the
// worker seed and run index, draws Iterations values and reports the next
// draw modulo 3.
type fastRandom struct {
	seed       int64
	iterations int
}

func newFastRandom(p Params) (harness.Factory, error) {
	iterations := p.Iterations
	if iterations < 0 {
		return nil, fmt.Errorf("fastrandom: iterations must be >= 0, got %d", iterations)
	}
	if iterations == 0 {
		iterations = DefaultIterations
	}
	return harness.NewFactory("fastrandom", func(seed int64) (harness.Workload, error) {
		return &fastRandom{seed: seed, iterations: iterations}, nil
	}), nil
}

func (f *fastRandom) RunIteration(_ context.Context, run int) (int, error) {
	g := rand.New(rand.NewPCG(uint64(f.seed+int64(run)), 0))
	for range f.iterations {
		g.IntN(100)
	}
	return g.IntN(3), nil
}

func newSleep(p Params) (harness.Factory, error) {
	if p.Sleep < 0 {
		return nil, fmt.Errorf("sleep: duration must be >= 0, got %s", p.Sleep)
	}
	pause := p.Sleep
	return harness.NewFactory("sleep", func(int64) (harness.Workload, error) {
		return harness.WorkloadFunc(func(ctx context.Context, _ int) (int, error) {
			if pause == 0 {
				return 1, nil
			}
			timer := time.NewTimer(pause)
			defer timer.Stop()
			select {
			case <-timer.C:
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}), nil
	}), nil
}

func newFailing(p Params) (harness.Factory, error) {
	if p.FailAt < 0 {
		return nil, fmt.Errorf("failing: fail_at must be >= 0, got %d", p.FailAt)
	}
	failAt := p.FailAt
	return harness.NewFactory("failing", func(int64) (harness.Workload, error) {
		return harness.WorkloadFunc(func(_ context.Context, run int) (int, error) {
			if run == failAt {
				return 0, fmt.Errorf("run %d: %w", run, ErrInjected)
			}
			return 1, nil
		}), nil
	}), nil
}
