package harness

import "sync/atomic"

// RunCounter hands out run indices 1..target, each exactly once, without
// locking.
type RunCounter struct {
	last   atomic.Int64
	target int64
}

func NewRunCounter(target int) *RunCounter {
	return &RunCounter{target: int64(target)}
}

// Next claims the next run index. ok is false once all runs are claimed.
func (c *RunCounter) Next() (run int, ok bool) {
	for {
		current := c.last.Load()
		next := current + 1
		if next > c.target {
			return 0, false
		}
		if c.last.CompareAndSwap(current, next) {
			return int(next), true
		}
	}
}

// Last returns the most recently claimed run index.
func (c *RunCounter) Last() int {
	return int(c.last.Load())
}

// Target returns the number of runs the counter hands out.
func (c *RunCounter) Target() int {
	return int(c.target)
}
