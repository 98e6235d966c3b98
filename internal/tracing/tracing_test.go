package tracing_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/crankbench/internal/config"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInitDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.Enabled() {
		t.Error("Enabled() = true, want false when no endpoint is configured")
	}

	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled provider produced a valid span context")
	}
}

func TestInitWithEndpointEnablesTracing(t *testing.T) {
	// The exporter connects lazily, so no collector is needed.
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "test-service",
		SampleRate:  1.0,
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.Enabled() {
		t.Error("Enabled() = false, want true when an endpoint is configured")
	}
	_, span := p.Tracer().Start(context.Background(), "sampled")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("span not sampled with sample_rate 1.0")
	}
}

func TestInitHTTPProtocol(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4318",
		Protocol:   "http",
		Insecure:   true,
		SampleRate: 1.0,
	})
	if err != nil {
		t.Fatalf("Init() with http protocol error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.Enabled() {
		t.Error("Enabled() = false, want true")
	}
}

func TestInitZeroSampleRateDropsSpans(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "grpc",
		Insecure: true,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, span := p.Tracer().Start(context.Background(), "unsampled")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Error("span sampled with sample_rate 0")
	}
}

func TestInitUnsupportedProtocol(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "thrift",
		Insecure: true,
	})
	if err == nil {
		t.Fatal("Init() with unsupported protocol should return error")
	}
}

func TestInitInvalidSampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{"negative", -0.5},
		{"above one", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tracing.Init(context.Background(), config.TracingConfig{
				Endpoint:   "localhost:4317",
				Protocol:   "grpc",
				Insecure:   true,
				SampleRate: tt.rate,
			})
			if err == nil {
				t.Fatalf("Init() with sample_rate=%g should return error", tt.rate)
			}
		})
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.Enabled() {
		t.Error("nil provider Enabled() = true, want false")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestCommandSpanParentsSteps(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	ctx, root := tracing.StartCommandSpan(context.Background(), tracer, "01J0000000000000000000000", "noop")
	_, step := tracing.StartStepSpan(ctx, tracer, "baseline.compare")
	tracing.EndSpan(step, nil)
	tracing.EndSpan(root, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	stepSpan, rootSpan := spans[0], spans[1]
	if rootSpan.Name != "crankbench noop" {
		t.Errorf("root span name = %q, want %q", rootSpan.Name, "crankbench noop")
	}
	if stepSpan.Parent.SpanID() != rootSpan.SpanContext.SpanID() {
		t.Error("step span is not a child of the command span")
	}
	if !hasAttr(rootSpan.Attributes, attribute.String("crankbench.run_id", "01J0000000000000000000000")) {
		t.Errorf("run_id attribute missing: %v", rootSpan.Attributes)
	}
}

func TestStatsAttributes(t *testing.T) {
	stats := metrics.Stats{
		Threads:       4,
		RunsTarget:    100,
		RunsExecuted:  100,
		ResultSum:     250,
		Throughput:    1000,
		DurationMs:    100,
		LatencyTiming: true,
		P50LatencyMs:  1.5,
		P99LatencyMs:  4,
	}

	attrs := tracing.StatsAttributes(stats)
	for _, want := range []attribute.KeyValue{
		attribute.Int("crankbench.threads", 4),
		attribute.Int64("crankbench.result_sum", 250),
		attribute.Float64("crankbench.latency.p99_ms", 4),
	} {
		if !hasAttr(attrs, want) {
			t.Errorf("StatsAttributes() missing %s=%v", want.Key, want.Value.Emit())
		}
	}

	stats.LatencyTiming = false
	for _, kv := range tracing.StatsAttributes(stats) {
		if kv.Key == "crankbench.latency.p50_ms" {
			t.Error("latency attributes present without latency timing")
		}
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-error")
	tracing.EndSpan(span, errors.New("boom"), attribute.String("crankbench.error_kind", "workload"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error event not recorded")
	}
	if !hasAttr(spans[0].Attributes, attribute.String("crankbench.error_kind", "workload")) {
		t.Error("extra attribute not set")
	}
}

func TestEndSpanOk(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-ok")
	tracing.EndSpan(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("span status code = %d, want %d (Ok)", spans[0].Status.Code, codes.Ok)
	}
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}
