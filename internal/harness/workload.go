package harness

import "context"

// Workload executes labeled iterations for a single worker. A Workload is
// only ever called from the goroutine of the worker that created it.
type Workload interface {
	// RunIteration executes iteration run (1-based, unique across all
	// workers of one Run) and returns a non-negative result count.
	RunIteration(ctx context.Context, run int) (int, error)
}

// WorkloadFunc adapts a function to the Workload interface.
type WorkloadFunc func(ctx context.Context, run int) (int, error)

func (f WorkloadFunc) RunIteration(ctx context.Context, run int) (int, error) {
	return f(ctx, run)
}

// Factory creates one Workload per worker.
type Factory interface {
	// NewWorkload returns the workload for a worker. Worker i receives the
	// executor seed plus i.
	NewWorkload(seed int64) (Workload, error)
	// Name labels the workload; workers are named "<name>:<index>".
	Name() string
}

type funcFactory struct {
	name string
	fn   func(seed int64) (Workload, error)
}

// NewFactory adapts a constructor function to the Factory interface.
func NewFactory(name string, fn func(seed int64) (Workload, error)) Factory {
	return &funcFactory{name: name, fn: fn}
}

func (f *funcFactory) NewWorkload(seed int64) (Workload, error) {
	return f.fn(seed)
}

func (f *funcFactory) Name() string {
	return f.name
}

// decoratedFactory wraps every workload created by inner.
type decoratedFactory struct {
	inner Factory
	wrap  func(Workload) Workload
}

func (d *decoratedFactory) NewWorkload(seed int64) (Workload, error) {
	w, err := d.inner.NewWorkload(seed)
	if err != nil {
		return nil, err
	}
	return d.wrap(w), nil
}

func (d *decoratedFactory) Name() string {
	return d.inner.Name()
}
