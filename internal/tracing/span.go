package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/crankbench/internal/metrics"
)

// StartCommandSpan starts the root span for one CLI invocation. The
// executor's harness.run span becomes its child.
func StartCommandSpan(ctx context.Context, tracer trace.Tracer, runID, workload string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "crankbench "+workload,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("crankbench.run_id", runID),
			attribute.String("crankbench.workload", workload),
		),
	)
}

// StartStepSpan starts a child span for a post-run step such as a
// baseline comparison.
func StartStepSpan(ctx context.Context, tracer trace.Tracer, step string) (context.Context, trace.Span) {
	return tracer.Start(ctx, step)
}

// StatsAttributes describes a finished run.
func StatsAttributes(s metrics.Stats) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("crankbench.threads", s.Threads),
		attribute.Int("crankbench.runs_target", s.RunsTarget),
		attribute.Int("crankbench.runs_executed", s.RunsExecuted),
		attribute.Int64("crankbench.result_sum", s.ResultSum),
		attribute.Float64("crankbench.throughput", s.Throughput),
		attribute.Float64("crankbench.duration_ms", s.DurationMs),
	}
	if s.LatencyTiming {
		attrs = append(attrs,
			attribute.Float64("crankbench.latency.p50_ms", s.P50LatencyMs),
			attribute.Float64("crankbench.latency.p99_ms", s.P99LatencyMs),
		)
	}
	if s.ErrorKind != "" {
		attrs = append(attrs, attribute.String("crankbench.error_kind", s.ErrorKind))
	}
	return attrs
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
