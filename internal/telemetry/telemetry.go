// Package telemetry exports harness run metrics in Prometheus format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torosent/crankbench/internal/metrics"
)

const namespace = "crankbench"

// Metrics holds the collectors for completed and in-flight runs.
type Metrics struct {
	registry *prometheus.Registry

	runs       *prometheus.CounterVec
	results    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	throughput *prometheus.GaugeVec
	latency    *prometheus.GaugeVec
	duration   *prometheus.GaugeVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_executed_total",
			Help:      "Iterations executed, by workload.",
		}, []string{"workload"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Sum of result counts reported by workloads.",
		}, []string{"workload"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed harness runs, by workload and failure kind.",
		}, []string{"workload", "kind"}),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_runs_per_second",
			Help:      "Mean throughput of the last run.",
		}, []string{"workload"}),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "iteration_latency_seconds",
			Help:      "Iteration latency quantiles of the last run.",
		}, []string{"workload", "quantile"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}, []string{"workload"}),
	}
	m.registry.MustRegister(
		m.runs, m.results, m.failures, m.throughput, m.latency, m.duration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackProgress registers a gauge that samples executed runs while a run is
// in progress.
func (m *Metrics) TrackProgress(workload string, executed func() int) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "runs_in_progress",
		Help:        "Iterations claimed so far by the current run.",
		ConstLabels: prometheus.Labels{"workload": workload},
	}, func() float64 { return float64(executed()) })
	if err := m.registry.Register(gauge); err != nil {
		return fmt.Errorf("register progress gauge: %w", err)
	}
	return nil
}

// Observe records a finished run.
func (m *Metrics) Observe(stats metrics.Stats) {
	name := stats.Workload
	m.runs.WithLabelValues(name).Add(float64(stats.RunsExecuted))
	m.results.WithLabelValues(name).Add(float64(stats.ResultSum))
	m.throughput.WithLabelValues(name).Set(stats.Throughput)
	m.duration.WithLabelValues(name).Set(stats.DurationMs / 1000)
	if stats.Failed() {
		m.failures.WithLabelValues(name, stats.ErrorKind).Inc()
	}
	if stats.LatencyTiming {
		quantiles := map[string]float64{
			"0.5":  stats.P50LatencyMs,
			"0.9":  stats.P90LatencyMs,
			"0.95": stats.P95LatencyMs,
			"0.99": stats.P99LatencyMs,
		}
		for q, ms := range quantiles {
			m.latency.WithLabelValues(name, q).Set(ms / 1000)
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return m.serve(ctx, ln)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}
