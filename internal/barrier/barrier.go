// Package barrier implements a cyclic rendezvous barrier with a trip action.
//
// A Barrier is created for a fixed number of parties. Each party calls
// [Barrier.Await]; the last one to arrive runs the trip action while holding
// the barrier lock and then releases everyone. The barrier then opens a new
// generation and can be tripped again.
//
// If a waiting party gives up (its context ends) the barrier breaks: that
// party receives the context error and every other waiter, present or
// future, receives [ErrBroken].
package barrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBroken is returned to parties waiting on, or arriving at, a broken barrier.
var ErrBroken = errors.New("barrier broken")

// ActionError reports a panic raised by the trip action.
type ActionError struct {
	Value any
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("barrier trip action panicked: %v", e.Value)
}

type generation struct {
	done   chan struct{}
	broken bool
}

// Barrier is a reusable rendezvous point for a fixed number of parties.
type Barrier struct {
	mu      sync.Mutex
	parties int
	count   int
	trips   int
	gen     *generation
	action  func()
}

// New creates a barrier for parties callers. action may be nil; otherwise it
// runs exactly once per trip on the last arriving party.
func New(parties int, action func()) *Barrier {
	if parties <= 0 {
		panic("barrier: parties must be > 0")
	}
	return &Barrier{
		parties: parties,
		action:  action,
		gen:     newGeneration(),
	}
}

func newGeneration() *generation {
	return &generation{done: make(chan struct{})}
}

// Await blocks until all parties have called Await on the current generation,
// the barrier breaks, or ctx ends.
func (b *Barrier) Await(ctx context.Context) error {
	b.mu.Lock()
	g := b.gen
	if g.broken {
		b.mu.Unlock()
		return ErrBroken
	}
	if err := ctx.Err(); err != nil {
		b.breakLocked()
		b.mu.Unlock()
		return err
	}

	b.count++
	if b.count == b.parties {
		if err := b.runAction(); err != nil {
			b.breakLocked()
			b.mu.Unlock()
			return err
		}
		b.trips++
		b.count = 0
		b.gen = newGeneration()
		close(g.done)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-g.done:
		if g.broken {
			return ErrBroken
		}
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		if g.broken {
			return ErrBroken
		}
		if g != b.gen {
			// Tripped while we were being cancelled.
			return nil
		}
		b.breakLocked()
		return ctx.Err()
	}
}

func (b *Barrier) runAction() (err error) {
	if b.action == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Value: r}
		}
	}()
	b.action()
	return nil
}

// breakLocked marks the current generation broken and wakes its waiters.
func (b *Barrier) breakLocked() {
	if b.gen.broken {
		return
	}
	b.gen.broken = true
	b.count = 0
	close(b.gen.done)
}

// Parties returns the number of parties required to trip the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns the number of parties currently blocked in Await.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Trips returns how many times the barrier has tripped.
func (b *Barrier) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// Broken reports whether the current generation is broken.
func (b *Barrier) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen.broken
}
