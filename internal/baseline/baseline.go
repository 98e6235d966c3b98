// Package baseline stores run summaries and compares new runs against them.
package baseline

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/crankbench/internal/metrics"
)

// ErrNotFound is returned when no baseline exists under a name.
var ErrNotFound = errors.New("baseline not found")

// Record is a stored run summary.
type Record struct {
	ID            string    `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Workload      string    `yaml:"workload" json:"workload"`
	Threads       int       `yaml:"threads" json:"threads"`
	Runs          int       `yaml:"runs" json:"runs"`
	Throughput    float64   `yaml:"throughput" json:"throughput"`
	MeanLatencyMs float64   `yaml:"mean_latency_ms" json:"mean_latency_ms"`
	P99LatencyMs  float64   `yaml:"p99_latency_ms" json:"p99_latency_ms"`
	ResultSum     int64     `yaml:"result_sum" json:"result_sum"`
	RecordedAt    time.Time `yaml:"recorded_at" json:"recorded_at"`
}

// Store persists baselines by name.
type Store interface {
	Load(ctx context.Context, name string) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// FromStats builds a record named name from a run summary. The run ID is
// reused when present; otherwise a new ULID is generated.
func FromStats(name string, stats metrics.Stats, now time.Time) Record {
	id := stats.RunID
	if id == "" {
		id = ulid.Make().String()
	}
	return Record{
		ID:            id,
		Name:          name,
		Workload:      stats.Workload,
		Threads:       stats.Threads,
		Runs:          stats.RunsExecuted,
		Throughput:    stats.Throughput,
		MeanLatencyMs: stats.MeanLatencyMs,
		P99LatencyMs:  stats.P99LatencyMs,
		ResultSum:     stats.ResultSum,
		RecordedAt:    now.UTC(),
	}
}

const lockRetryDelay = 50 * time.Millisecond
