// Package stopwatch provides an accumulating wall-clock timer.
package stopwatch

import "time"

// Stopwatch measures elapsed time across one or more start/stop intervals.
// It is not safe for concurrent use; callers serialize access.
type Stopwatch struct {
	now     func() time.Time
	started time.Time
	running bool
	delta   time.Duration
	total   time.Duration
}

// New returns a stopped Stopwatch reading the system clock.
func New() *Stopwatch {
	return NewWithClock(time.Now)
}

// NewWithClock returns a stopped Stopwatch reading the given clock.
func NewWithClock(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

// Start begins a new interval. Starting a running stopwatch restarts the
// current interval.
func (s *Stopwatch) Start() {
	s.started = s.now()
	s.running = true
}

// Stop ends the current interval, adds it to the total and returns it.
// Stopping a stopped stopwatch returns zero.
func (s *Stopwatch) Stop() time.Duration {
	if !s.running {
		return 0
	}
	s.delta = s.now().Sub(s.started)
	if s.delta < 0 {
		s.delta = 0
	}
	s.total += s.delta
	s.running = false
	return s.delta
}

// Delta returns the length of the last completed interval.
func (s *Stopwatch) Delta() time.Duration {
	return s.delta
}

// Duration returns the sum of all completed intervals.
func (s *Stopwatch) Duration() time.Duration {
	return s.total
}

// Running reports whether an interval is in progress.
func (s *Stopwatch) Running() bool {
	return s.running
}
