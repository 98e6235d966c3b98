package metrics

import (
	"fmt"
	"strings"
	"time"
)

// Run describes a finished harness run.
type Run struct {
	Workload      string
	Threads       int
	Seed          int64
	RunsTarget    int
	RunsExecuted  int
	ResultSum     int64
	Duration      time.Duration
	LatencyTiming bool
	LatencySum    time.Duration
	Err           error
	ErrorKind     string
}

// Stats represents an aggregated run summary.
type Stats struct {
	RunID         string        `json:"run_id,omitempty"`
	Workload      string        `json:"workload"`
	Threads       int           `json:"threads"`
	Seed          int64         `json:"seed"`
	RunsTarget    int           `json:"runs_target"`
	RunsExecuted  int           `json:"runs_executed"`
	ResultSum     int64         `json:"result_sum"`
	Throughput    float64       `json:"throughput"`
	LatencyTiming bool          `json:"latency_timing"`
	Duration      time.Duration `json:"-"`
	MeanLatency   time.Duration `json:"-"`
	MinLatency    time.Duration `json:"-"`
	MaxLatency    time.Duration `json:"-"`
	P50Latency    time.Duration `json:"-"`
	P90Latency    time.Duration `json:"-"`
	P95Latency    time.Duration `json:"-"`
	P99Latency    time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	DurationMs    float64 `json:"duration_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// Summarize combines run counters with the merged latency distribution.
func Summarize(run Run, latency Latency) Stats {
	stats := Stats{
		Workload:      run.Workload,
		Threads:       run.Threads,
		Seed:          run.Seed,
		RunsTarget:    run.RunsTarget,
		RunsExecuted:  run.RunsExecuted,
		ResultSum:     run.ResultSum,
		LatencyTiming: run.LatencyTiming,
		Duration:      run.Duration,
		MinLatency:    latency.Min,
		MaxLatency:    latency.Max,
		P50Latency:    latency.P50,
		P90Latency:    latency.P90,
		P95Latency:    latency.P95,
		P99Latency:    latency.P99,
	}

	if run.Duration > 0 {
		stats.Throughput = float64(run.RunsExecuted) / run.Duration.Seconds()
	}
	if run.RunsExecuted > 0 {
		stats.MeanLatency = run.LatencySum / time.Duration(run.RunsExecuted)
	}

	stats.DurationMs = millis(stats.Duration)
	stats.MeanLatencyMs = millis(stats.MeanLatency)
	stats.MinLatencyMs = millis(stats.MinLatency)
	stats.MaxLatencyMs = millis(stats.MaxLatency)
	stats.P50LatencyMs = millis(stats.P50Latency)
	stats.P90LatencyMs = millis(stats.P90Latency)
	stats.P95LatencyMs = millis(stats.P95Latency)
	stats.P99LatencyMs = millis(stats.P99Latency)

	if run.Err != nil {
		stats.Error = run.Err.Error()
		stats.ErrorKind = run.ErrorKind
		stats.ErrorType = FriendlyErrorName(fmt.Sprintf("%T", classify(run.Err)))
	}
	return stats
}

// Failed reports whether the run ended with an error.
func (s Stats) Failed() bool {
	return s.Error != ""
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// classify walks the wrap chain and returns the outermost harness or barrier
// error, or the root cause when there is none. Multi-error wraps are
// followed through their first member.
func classify(err error) error {
	for {
		if isHarnessType(err) {
			return err
		}
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
}

func isHarnessType(err error) bool {
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	return strings.HasPrefix(name, "harness.") || strings.HasPrefix(name, "barrier.")
}
