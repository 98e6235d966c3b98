package stopwatch

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestStopwatchAccumulatesIntervals(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sw := NewWithClock(clock.Now)

	sw.Start()
	clock.advance(10 * time.Millisecond)
	if got := sw.Stop(); got != 10*time.Millisecond {
		t.Fatalf("first delta = %s, want 10ms", got)
	}

	clock.advance(time.Second) // not measured
	sw.Start()
	clock.advance(5 * time.Millisecond)
	sw.Stop()

	if sw.Delta() != 5*time.Millisecond {
		t.Errorf("Delta = %s, want 5ms", sw.Delta())
	}
	if sw.Duration() != 15*time.Millisecond {
		t.Errorf("Duration = %s, want 15ms", sw.Duration())
	}
}

func TestStopwatchStopWhenStopped(t *testing.T) {
	sw := New()
	if got := sw.Stop(); got != 0 {
		t.Fatalf("Stop on idle stopwatch = %s, want 0", got)
	}
	if sw.Running() {
		t.Fatalf("idle stopwatch reports running")
	}
}

func TestStopwatchRestart(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sw := NewWithClock(clock.Now)

	sw.Start()
	clock.advance(time.Second)
	sw.Start()
	if !sw.Running() {
		t.Fatalf("expected running after Start")
	}
	clock.advance(2 * time.Millisecond)
	if got := sw.Stop(); got != 2*time.Millisecond {
		t.Fatalf("restarted interval = %s, want 2ms", got)
	}
}
