package harness

import (
	"sync"
	"sync/atomic"
)

// ErrorBox keeps the first error offered to it and drops the rest.
type ErrorBox struct {
	mu     sync.Mutex
	err    error
	failed atomic.Bool
}

// TrySet stores err if the box is empty. It reports whether err was kept.
func (b *ErrorBox) TrySet(err error) bool {
	if err == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return false
	}
	b.err = err
	b.failed.Store(true)
	return true
}

// Err returns the stored error, if any.
func (b *ErrorBox) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Failed reports whether an error has been stored. It does not lock and is
// meant for polling from worker loops.
func (b *ErrorBox) Failed() bool {
	return b.failed.Load()
}
