package harness

import (
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Options configure an Executor.
type Options struct {
	Runs              int           // total iterations across all workers
	Threads           int           // number of worker goroutines
	Seed              int64         // base seed, worker i gets Seed+i (0 picks a random seed)
	LatencyTiming     bool          // time every iteration
	CompletionTimeout time.Duration // bound on waiting for workers to finish (0 waits forever)
	Logger            *zap.Logger   // optional, defaults to a no-op logger
	Tracer            trace.Tracer  // optional, defaults to a no-op tracer
}

func (o *Options) normalize() {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.Runs < 0 {
		o.Runs = 0
	}
	if o.CompletionTimeout < 0 {
		o.CompletionTimeout = 0
	}
	if o.Seed == 0 {
		o.Seed = randomSeed()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("crankbench")
	}
}

func randomSeed() int64 {
	for {
		if seed := rand.Int64(); seed != 0 {
			return seed
		}
	}
}
