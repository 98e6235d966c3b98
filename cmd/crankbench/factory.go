package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/crankbench/internal/config"
	"github.com/torosent/crankbench/internal/harness"
	"github.com/torosent/crankbench/internal/logging"
	"github.com/torosent/crankbench/internal/workload"
)

const (
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 5 * time.Second
)

// buildFactory resolves the configured workload and wraps it with failure
// logging, retries and pacing, innermost first.
func buildFactory(cfg *config.Config, log *zap.Logger) (harness.Factory, error) {
	factory, err := workload.New(cfg.Workload, cfg.WorkloadParams())
	if err != nil {
		return nil, err
	}
	if cfg.LogErrors {
		factory = harness.WithLogging(factory, logging.FailureLogger(log))
	}
	if cfg.Retries > 0 {
		factory = harness.WithRetry(factory, newRetryPolicy(cfg.Retries, cfg.RetryDelay))
	}
	if cfg.Rate > 0 {
		factory = harness.WithPacing(factory, newPacer(cfg))
	}
	return factory, nil
}

func newPacer(cfg *config.Config) harness.Pacer {
	if cfg.Arrival.Model == config.ArrivalModelPoisson {
		return harness.NewPoissonPacer(cfg.Rate, cfg.Seed)
	}
	return harness.NewUniformPacer(cfg.Rate)
}

// newRetryPolicy retries every error except cancellation. A fixed delay is
// used when set, otherwise attempts back off exponentially with jitter.
func newRetryPolicy(retries int, delay time.Duration) harness.RetryPolicy {
	policy := harness.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: func(err error) bool {
			if err == nil {
				return false
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	}
	if delay > 0 {
		policy.Delay = delay
		return policy
	}
	policy.DelayFunc = func(attempt int, _ error) time.Duration {
		return backoff(attempt)
	}
	return policy
}

func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	d := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d + jitter(d/2)
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
