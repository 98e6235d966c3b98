package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Recorder accumulates iteration latencies for one worker. It is not safe for
// concurrent use: each worker owns a Recorder and the executor merges them
// once every worker has finished.
type Recorder struct {
	hist  *hdrhistogram.Histogram
	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration
}

// Latency summarizes a latency distribution.
type Latency struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

func NewRecorder() *Recorder {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Recorder{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

// Record adds a single iteration latency.
func (r *Recorder) Record(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	us := latency.Microseconds()
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)

	r.count++
	r.sum += latency
	if r.count == 1 || latency < r.min {
		r.min = latency
	}
	if latency > r.max {
		r.max = latency
	}
}

// Merge folds other into r. other is left unchanged.
func (r *Recorder) Merge(other *Recorder) {
	if other == nil || other.count == 0 {
		return
	}
	r.hist.Merge(other.hist)
	if r.count == 0 || other.min < r.min {
		r.min = other.min
	}
	if other.max > r.max {
		r.max = other.max
	}
	r.count += other.count
	r.sum += other.sum
}

// Count returns the number of recorded latencies.
func (r *Recorder) Count() int64 {
	return r.count
}

// Latency returns the distribution summary. Percentiles have microsecond
// resolution; min, max and mean are exact.
func (r *Recorder) Latency() Latency {
	if r.count == 0 {
		return Latency{}
	}
	return Latency{
		Count: r.count,
		Min:   r.min,
		Max:   r.max,
		Mean:  time.Duration(int64(r.sum) / r.count),
		P50:   time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(r.hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:   time.Duration(r.hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond,
	}
}
