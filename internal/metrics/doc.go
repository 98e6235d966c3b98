// Package metrics summarizes harness runs.
//
// Workers record iteration latencies into a private [Recorder] backed by an
// HDR histogram, so the hot path never takes a shared lock. Once every worker
// has passed the completion barrier the executor merges the recorders and
// hands the result to [Summarize]:
//
//	rec := metrics.NewRecorder()
//	rec.Record(latency)      // per iteration, single goroutine
//	total.Merge(rec)         // after the run
//	stats := metrics.Summarize(run, total.Latency())
//
// # Statistics
//
// The [Stats] type carries run counters (target, executed, result sum),
// throughput in runs per second and the latency distribution (mean, min, max,
// P50, P90, P95, P99). Duration fields are mirrored as millisecond floats for
// JSON output.
//
// # Errors
//
// When a run fails, [Stats] keeps the error text, its harness kind and a
// human-friendly type label produced by [FriendlyErrorName].
package metrics
