package harness

import (
	"context"
	"time"
)

// FailureLogger receives failed iterations.
type FailureLogger interface {
	LogFailure(run int, err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including the initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// retryWorkload retries a failing iteration with the same run index.
type retryWorkload struct {
	inner  Workload
	policy RetryPolicy
}

// WithRetry wraps every workload created by factory with retry capability.
func WithRetry(factory Factory, policy RetryPolicy) Factory {
	if policy.MaxAttempts <= 1 {
		return factory
	}
	return &decoratedFactory{
		inner: factory,
		wrap: func(w Workload) Workload {
			return &retryWorkload{inner: w, policy: policy}
		},
	}
}

func (r *retryWorkload) RunIteration(ctx context.Context, run int) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		count, err := r.inner.RunIteration(ctx, run)
		if err == nil {
			return count, nil
		}
		lastErr = err

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(lastErr) {
				return 0, lastErr
			}
			delay := r.policy.Delay
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return 0, ctx.Err()
				}
			}
		}
	}
	return 0, lastErr
}

// loggingWorkload reports failed iterations to a FailureLogger.
type loggingWorkload struct {
	inner  Workload
	logger FailureLogger
}

// WithLogging wraps every workload created by factory to log failures.
func WithLogging(factory Factory, logger FailureLogger) Factory {
	if logger == nil {
		return factory
	}
	return &decoratedFactory{
		inner: factory,
		wrap: func(w Workload) Workload {
			return &loggingWorkload{inner: w, logger: logger}
		},
	}
}

func (l *loggingWorkload) RunIteration(ctx context.Context, run int) (int, error) {
	count, err := l.inner.RunIteration(ctx, run)
	if err != nil {
		l.logger.LogFailure(run, err)
	}
	return count, err
}

// pacedWorkload waits on a shared pacer before each iteration.
type pacedWorkload struct {
	inner Workload
	pacer Pacer
}

// WithPacing wraps every workload created by factory so that iterations of
// all workers together follow pacer.
func WithPacing(factory Factory, pacer Pacer) Factory {
	if pacer == nil {
		return factory
	}
	return &decoratedFactory{
		inner: factory,
		wrap: func(w Workload) Workload {
			return &pacedWorkload{inner: w, pacer: pacer}
		},
	}
}

func (p *pacedWorkload) RunIteration(ctx context.Context, run int) (int, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return 0, err
	}
	return p.inner.RunIteration(ctx, run)
}
