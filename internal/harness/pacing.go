package harness

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces iteration starts. Implementations are shared by all workers
// and must be safe for concurrent use.
type Pacer interface {
	Wait(ctx context.Context) error
}

// uniformPacer delegates pacing to a rate.Limiter (uniform spacing).
type uniformPacer struct {
	limiter *rate.Limiter
}

// NewUniformPacer returns a pacer admitting rps iterations per second. A
// non-positive rps disables pacing.
func NewUniformPacer(rps float64) Pacer {
	if rps <= 0 {
		return &uniformPacer{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &uniformPacer{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (u *uniformPacer) Wait(ctx context.Context) error {
	return u.limiter.Wait(ctx)
}

// poissonPacer schedules arrivals with exponential inter-arrival times so
// that iteration starts approximate a Poisson process across all workers.
type poissonPacer struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
	now    func() time.Time
	next   time.Time
}

// NewPoissonPacer returns a pacer whose arrivals average rps per second. A
// non-positive rps disables pacing.
func NewPoissonPacer(rps float64, seed int64) Pacer {
	seeded := rand.New(rand.NewSource(seed))
	return newPoissonPacer(rps, seeded.ExpFloat64, time.Now)
}

func newPoissonPacer(rps float64, sample func() float64, now func() time.Time) *poissonPacer {
	if rps < 0 {
		rps = 0
	}
	return &poissonPacer{rate: rps, sample: sample, now: now}
}

func (p *poissonPacer) Wait(ctx context.Context) error {
	delay := p.reserve()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve claims the next arrival slot and returns how long to wait for it.
func (p *poissonPacer) reserve() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate <= 0 || p.sample == nil {
		return 0
	}

	now := p.now()
	if p.next.Before(now) {
		p.next = now
	}
	gap := float64(time.Second) * p.sample() / p.rate
	if gap > math.MaxInt64 {
		gap = math.MaxInt64
	}
	p.next = p.next.Add(time.Duration(gap))
	return p.next.Sub(now)
}
