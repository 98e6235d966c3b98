package harness

import (
	"sync/atomic"
	"time"
)

// ResultAggregator accumulates result counts and iteration latency from all
// workers using atomic adds.
type ResultAggregator struct {
	sum     atomic.Int64
	latency atomic.Int64
}

// Add adds an iteration's result count.
func (a *ResultAggregator) Add(count int) {
	a.sum.Add(int64(count))
}

// AddLatency adds an iteration's measured latency.
func (a *ResultAggregator) AddLatency(d time.Duration) {
	a.latency.Add(int64(d))
}

// Sum returns the total result count.
func (a *ResultAggregator) Sum() int64 {
	return a.sum.Load()
}

// Latency returns the total measured latency.
func (a *ResultAggregator) Latency() time.Duration {
	return time.Duration(a.latency.Load())
}
