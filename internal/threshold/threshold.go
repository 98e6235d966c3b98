// Package threshold evaluates pass/fail assertions against a run summary.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/crankbench/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "iteration_duration", "iterations"
	Aggregate string  // e.g., "p95", "avg", "rate", "sum"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: error: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var errNoLatency = errors.New("latency timing was disabled for this run")

type extractor func(stats metrics.Stats) (float64, error)

func latency(field func(metrics.Stats) float64) extractor {
	return func(stats metrics.Stats) (float64, error) {
		if !stats.LatencyTiming {
			return 0, errNoLatency
		}
		return field(stats), nil
	}
}

func value(field func(metrics.Stats) float64) extractor {
	return func(stats metrics.Stats) (float64, error) {
		return field(stats), nil
	}
}

// Latency aggregates are milliseconds; rates are per second.
var catalog = map[string]map[string]extractor{
	"iteration_duration": {
		"p50": latency(func(s metrics.Stats) float64 { return s.P50LatencyMs }),
		"p90": latency(func(s metrics.Stats) float64 { return s.P90LatencyMs }),
		"p95": latency(func(s metrics.Stats) float64 { return s.P95LatencyMs }),
		"p99": latency(func(s metrics.Stats) float64 { return s.P99LatencyMs }),
		"avg": latency(func(s metrics.Stats) float64 { return s.MeanLatencyMs }),
		"min": latency(func(s metrics.Stats) float64 { return s.MinLatencyMs }),
		"max": latency(func(s metrics.Stats) float64 { return s.MaxLatencyMs }),
	},
	"iterations": {
		"count": value(func(s metrics.Stats) float64 { return float64(s.RunsExecuted) }),
		"rate":  value(func(s metrics.Stats) float64 { return s.Throughput }),
	},
	"results": {
		"sum":  value(func(s metrics.Stats) float64 { return float64(s.ResultSum) }),
		"rate": value(resultRate),
	},
	"failures": {
		"count": value(func(s metrics.Stats) float64 {
			if s.Failed() {
				return 1
			}
			return 0
		}),
	},
}

func resultRate(s metrics.Stats) float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	return float64(s.ResultSum) / (s.DurationMs / 1000)
}

var operators = []string{"<", "<=", ">", ">=", "=="}

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "iteration_duration:p95 < 5"   (latency percentile in ms)
// - "iteration_duration:avg < 2"   (mean latency in ms)
// - "iterations:rate > 10000"      (iterations per second)
// - "iterations:count >= 100000"   (iterations executed)
// - "results:sum > 0"              (sum of iteration results)
// - "results:rate > 500"           (result units per second)
// - "failures:count == 0"          (1 when the run failed)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'iteration_duration:p95 < 5')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	val, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := catalog[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(catalog), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggregates), ", "))
	}
	if !slices.Contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: %s)", operator, strings.Join(operators, ", "))
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     val,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}

	return result, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	extract, ok := catalog[t.Metric][t.Aggregate]
	if !ok {
		return 0, fmt.Errorf("unknown metric: %s:%s", t.Metric, t.Aggregate)
	}
	return extract(stats)
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
