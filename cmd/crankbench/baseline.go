package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/crankbench/internal/baseline"
	"github.com/torosent/crankbench/internal/config"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/tracing"
)

// openBaselineStore returns the configured store, or nil when baselines are
// disabled. The returned close func is always safe to call.
func openBaselineStore(cfg config.BaselineConfig) (baseline.Store, func(), error) {
	switch {
	case cfg.File != "":
		return baseline.NewFileStore(cfg.File), func() {}, nil
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = baseline.DefaultRedisPrefix
		}
		return baseline.NewRedisStore(client, prefix, 0), func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// compareBaseline loads the named baseline and compares stats against it.
// A missing baseline yields a nil comparison.
func compareBaseline(ctx context.Context, tracer trace.Tracer, store baseline.Store, cfg config.BaselineConfig, stats metrics.Stats, log *zap.Logger) (cmp *baseline.Comparison, err error) {
	ctx, span := tracing.StartStepSpan(ctx, tracer, "baseline.compare")
	defer func() {
		var attrs []attribute.KeyValue
		if cmp != nil {
			attrs = append(attrs, attribute.Int("crankbench.baseline.regressions", len(cmp.Regressions(cfg.Tolerance))))
		}
		tracing.EndSpan(span, err, attrs...)
	}()

	base, err := store.Load(ctx, cfg.Key)
	if errors.Is(err, baseline.ErrNotFound) {
		log.Warn("no baseline recorded", zap.String("key", cfg.Key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline %q: %w", cfg.Key, err)
	}
	c := baseline.Compare(base, baseline.FromStats(cfg.Key, stats, time.Now()))
	return &c, nil
}

func saveBaseline(ctx context.Context, tracer trace.Tracer, store baseline.Store, key string, stats metrics.Stats) (err error) {
	ctx, span := tracing.StartStepSpan(ctx, tracer, "baseline.save")
	defer func() { tracing.EndSpan(span, err) }()

	if err := store.Save(ctx, baseline.FromStats(key, stats, time.Now())); err != nil {
		return fmt.Errorf("save baseline %q: %w", key, err)
	}
	return nil
}
