// Package output renders run summaries as text, JSON and HTML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/torosent/crankbench/internal/baseline"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/siformat"
	"github.com/torosent/crankbench/internal/threshold"
)

// PrintReport outputs a human-readable summary report. Rates and latencies
// use six-character SI formatting ("1.234k", "2.500m").
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Harness Results ---")
	if stats.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", stats.RunID)
	}
	fmt.Fprintf(w, "Workload:          %s\n", stats.Workload)
	fmt.Fprintf(w, "Threads:           %d\n", stats.Threads)
	fmt.Fprintf(w, "Seed:              %d\n", stats.Seed)
	fmt.Fprintf(w, "Runs:              %d / %d\n", stats.RunsExecuted, stats.RunsTarget)
	fmt.Fprintf(w, "Result Sum:        %d\n", stats.ResultSum)
	fmt.Fprintf(w, "Duration:          %ss\n", seconds(stats.Duration))
	fmt.Fprintf(w, "Throughput:        %s runs/s\n", siformat.Format(stats.Throughput))

	if stats.LatencyTiming {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %ss\n", seconds(stats.MinLatency))
		fmt.Fprintf(w, "  Max:             %ss\n", seconds(stats.MaxLatency))
		fmt.Fprintf(w, "  Mean:            %ss\n", seconds(stats.MeanLatency))
		fmt.Fprintf(w, "  P50:             %ss\n", seconds(stats.P50Latency))
		fmt.Fprintf(w, "  P90:             %ss\n", seconds(stats.P90Latency))
		fmt.Fprintf(w, "  P95:             %ss\n", seconds(stats.P95Latency))
		fmt.Fprintf(w, "  P99:             %ss\n", seconds(stats.P99Latency))
	}

	if stats.Failed() {
		fmt.Fprintln(w, "\nFailure:")
		fmt.Fprintf(w, "  Kind:            %s\n", stats.ErrorKind)
		if stats.ErrorType != "" {
			fmt.Fprintf(w, "  Type:            %s\n", stats.ErrorType)
		}
		fmt.Fprintf(w, "  Error:           %s\n", stats.Error)
	}
}

// PrintThresholds lists threshold results and a pass/fail summary line.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "  %d/%d passed\n", passed, len(results))
}

// PrintComparison shows each metric's change against the baseline and marks
// the ones that regressed beyond tolerance.
func PrintComparison(w io.Writer, cmp baseline.Comparison, tolerance float64) {
	base := cmp.Baseline
	fmt.Fprintf(w, "\nBaseline %q (%s, %s):\n", base.Name, base.ID, base.RecordedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  %-16s %8s %8s %8s\n", "metric", "base", "current", "change")
	for _, d := range cmp.Deltas {
		mark := ""
		if d.Regressed(tolerance) {
			mark = "  REGRESSED"
		}
		fmt.Fprintf(w, "  %-16s %8s %8s %8s%s\n",
			d.Metric, siformat.Format(d.Baseline), siformat.Format(d.Current), d.Formatted(), mark)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	return PrintJSON(w, stats)
}

// JSONReport is the document written by --json-output when thresholds or a
// baseline comparison accompany the run.
type JSONReport struct {
	Stats      metrics.Stats         `json:"stats"`
	Thresholds []ThresholdResultJSON `json:"thresholds,omitempty"`
	Baseline   *ComparisonJSON       `json:"baseline,omitempty"`
}

// ComparisonJSON is the JSON form of a baseline comparison.
type ComparisonJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Deltas      []DeltaJSON `json:"deltas"`
	Regressions int         `json:"regressions"`
}

// DeltaJSON is one metric's change. Change is omitted when the baseline was 0.
type DeltaJSON struct {
	Metric    string   `json:"metric"`
	Baseline  float64  `json:"baseline"`
	Current   float64  `json:"current"`
	Change    *float64 `json:"change,omitempty"`
	Formatted string   `json:"formatted"`
	Regressed bool     `json:"regressed"`
}

// NewJSONReport assembles a JSONReport. cmp may be nil.
func NewJSONReport(stats metrics.Stats, results []threshold.Result, cmp *baseline.Comparison, tolerance float64) JSONReport {
	report := JSONReport{Stats: stats}
	if summary := summarizeThresholds(results); summary != nil {
		report.Thresholds = summary.Results
	}
	if cmp != nil {
		cj := &ComparisonJSON{ID: cmp.Baseline.ID, Name: cmp.Baseline.Name}
		for _, d := range cmp.Deltas {
			dj := DeltaJSON{
				Metric:    d.Metric,
				Baseline:  d.Baseline,
				Current:   d.Current,
				Formatted: d.Formatted(),
				Regressed: d.Regressed(tolerance),
			}
			if !math.IsNaN(d.Change) {
				change := d.Change
				dj.Change = &change
			}
			if dj.Regressed {
				cj.Regressions++
			}
			cj.Deltas = append(cj.Deltas, dj)
		}
		report.Baseline = cj
	}
	return report
}

// PrintJSON writes any report value as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func seconds(d time.Duration) string {
	return siformat.Format(d.Seconds())
}
