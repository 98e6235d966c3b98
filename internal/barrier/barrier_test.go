package barrier_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/crankbench/internal/barrier"
)

func TestBarrierReleasesAllParties(t *testing.T) {
	const parties = 5
	var actions atomic.Int64
	b := barrier.New(parties, func() { actions.Add(1) })

	var wg sync.WaitGroup
	errs := make(chan error, parties)
	wg.Add(parties)
	for range parties {
		go func() {
			defer wg.Done()
			errs <- b.Await(context.Background())
		}()
	}
	waitOrFail(t, &wg, 5*time.Second)
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), actions.Load())
	assert.Equal(t, 1, b.Trips())
	assert.Equal(t, 0, b.Waiting())
}

func TestBarrierActionRunsBeforeRelease(t *testing.T) {
	const parties = 4
	var tripped atomic.Bool
	b := barrier.New(parties, func() { tripped.Store(true) })

	var wg sync.WaitGroup
	var early atomic.Int64
	wg.Add(parties)
	for range parties {
		go func() {
			defer wg.Done()
			if err := b.Await(context.Background()); err != nil {
				t.Error(err)
				return
			}
			if !tripped.Load() {
				early.Add(1)
			}
		}()
	}
	waitOrFail(t, &wg, 5*time.Second)
	assert.Zero(t, early.Load(), "parties released before the trip action ran")
}

func TestBarrierMultipleGenerations(t *testing.T) {
	const (
		parties = 4
		phases  = 20
	)
	var actions atomic.Int64
	b := barrier.New(parties, func() { actions.Add(1) })

	var wg sync.WaitGroup
	wg.Add(parties)
	for range parties {
		go func() {
			defer wg.Done()
			for range phases {
				if err := b.Await(context.Background()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	waitOrFail(t, &wg, 10*time.Second)

	assert.Equal(t, int64(phases), actions.Load())
	assert.Equal(t, phases, b.Trips())
}

func TestBarrierSingleParty(t *testing.T) {
	calls := 0
	b := barrier.New(1, func() { calls++ })
	require.NoError(t, b.Await(context.Background()))
	require.NoError(t, b.Await(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, b.Trips())
}

func TestBarrierCancelBreaksOtherWaiters(t *testing.T) {
	b := barrier.New(3, nil)

	waiterErr := make(chan error, 1)
	go func() {
		waiterErr <- b.Await(context.Background())
	}()
	require.Eventually(t, func() bool { return b.Waiting() == 1 }, 5*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case err := <-waiterErr:
		assert.ErrorIs(t, err, barrier.ErrBroken)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not released after the barrier broke")
	}

	assert.True(t, b.Broken())
	assert.ErrorIs(t, b.Await(context.Background()), barrier.ErrBroken)
}

func TestBarrierCancelledContextBeforeArrival(t *testing.T) {
	b := barrier.New(2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Await(ctx), context.Canceled)
	assert.True(t, b.Broken())
}

func TestBarrierActionPanicBreaksBarrier(t *testing.T) {
	b := barrier.New(2, func() { panic("boom") })

	waiterErr := make(chan error, 1)
	go func() {
		waiterErr <- b.Await(context.Background())
	}()
	require.Eventually(t, func() bool { return b.Waiting() == 1 }, 5*time.Second, time.Millisecond)

	err := b.Await(context.Background())
	var actionErr *barrier.ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "boom", actionErr.Value)
	assert.ErrorIs(t, <-waiterErr, barrier.ErrBroken)
	assert.Zero(t, b.Trips())
}

func TestNewPanicsOnZeroParties(t *testing.T) {
	assert.Panics(t, func() { barrier.New(0, nil) })
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("parties did not complete within %s (possible deadlock)", timeout)
	}
}
