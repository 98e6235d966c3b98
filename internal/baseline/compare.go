package baseline

import (
	"math"

	"github.com/torosent/crankbench/internal/siformat"
)

// Delta is the relative change of one metric against the baseline.
type Delta struct {
	Metric         string
	Baseline       float64
	Current        float64
	Change         float64 // (current - baseline) / baseline, NaN when baseline is 0
	HigherIsBetter bool
}

// Formatted renders Change as a multiple or percentage.
func (d Delta) Formatted() string {
	return siformat.FormatDifference(d.Change)
}

// Regressed reports whether the metric moved in the wrong direction by more
// than tolerance (a fraction, 0.1 for 10%).
func (d Delta) Regressed(tolerance float64) bool {
	if math.IsNaN(d.Change) {
		return false
	}
	if d.HigherIsBetter {
		return d.Change < -tolerance
	}
	return d.Change > tolerance
}

// Comparison holds the deltas of a run against a baseline.
type Comparison struct {
	Baseline Record
	Deltas   []Delta
}

// Regressions returns the deltas that regressed beyond tolerance.
func (c Comparison) Regressions(tolerance float64) []Delta {
	var out []Delta
	for _, d := range c.Deltas {
		if d.Regressed(tolerance) {
			out = append(out, d)
		}
	}
	return out
}

// Compare computes the relative change of current against base.
func Compare(base, current Record) Comparison {
	return Comparison{
		Baseline: base,
		Deltas: []Delta{
			newDelta("throughput", base.Throughput, current.Throughput, true),
			newDelta("mean_latency_ms", base.MeanLatencyMs, current.MeanLatencyMs, false),
			newDelta("p99_latency_ms", base.P99LatencyMs, current.P99LatencyMs, false),
			newDelta("result_sum", float64(base.ResultSum), float64(current.ResultSum), true),
		},
	}
}

func newDelta(metric string, base, current float64, higherIsBetter bool) Delta {
	change := math.NaN()
	if base != 0 {
		change = (current - base) / base
	}
	return Delta{
		Metric:         metric,
		Baseline:       base,
		Current:        current,
		Change:         change,
		HigherIsBetter: higherIsBetter,
	}
}
