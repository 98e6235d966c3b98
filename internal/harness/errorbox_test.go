package harness_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/torosent/crankbench/internal/harness"
)

func TestErrorBoxFirstWriterWins(t *testing.T) {
	var box harness.ErrorBox
	if box.Failed() || box.Err() != nil {
		t.Fatal("new ErrorBox is not empty")
	}

	first := errors.New("first")
	if !box.TrySet(first) {
		t.Fatal("TrySet(first) = false, want true")
	}
	if box.TrySet(errors.New("second")) {
		t.Error("TrySet(second) = true, want false")
	}
	if box.Err() != first || !box.Failed() {
		t.Errorf("Err() = %v, Failed() = %v", box.Err(), box.Failed())
	}
}

func TestErrorBoxIgnoresNil(t *testing.T) {
	var box harness.ErrorBox
	if box.TrySet(nil) {
		t.Error("TrySet(nil) = true, want false")
	}
	if box.Failed() {
		t.Error("Failed() = true after TrySet(nil)")
	}
}

func TestErrorBoxConcurrentWriters(t *testing.T) {
	var box harness.ErrorBox
	const writers = 32
	var wg sync.WaitGroup
	wins := make(chan error, writers)
	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()
			err := errors.New("failure")
			if box.TrySet(err) {
				wins <- err
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won []error
	for err := range wins {
		won = append(won, err)
	}
	if len(won) != 1 {
		t.Fatalf("%d writers won, want 1", len(won))
	}
	if box.Err() != won[0] {
		t.Errorf("Err() = %v, want the winning error", box.Err())
	}
}
