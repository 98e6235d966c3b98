package output

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	runs   atomic.Int64
	target int
}

func (f *fakeSource) RunsExecuted() int { return int(f.runs.Load()) }
func (f *fakeSource) RunsTarget() int   { return f.target }

func TestProgressReporterFormatting(t *testing.T) {
	src := &fakeSource{target: 1000}
	src.runs.Store(250)

	var buf bytes.Buffer
	reporter := NewProgressReporter(src, 10*time.Millisecond, &buf)
	reporter.Start()
	time.Sleep(50 * time.Millisecond)
	reporter.Stop()

	output := buf.String()
	if !strings.Contains(output, "Runs: 250/1000 ( 25.0%)") {
		t.Errorf("progress output = %q, want runs and percentage", output)
	}
	if !strings.Contains(output, "Rate:") {
		t.Errorf("progress output = %q, want rate", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("Stop() should end the status line")
	}
}

func TestProgressReporterSamples(t *testing.T) {
	src := &fakeSource{target: 300}
	clock := time.Unix(0, 0)
	reporter := NewProgressReporter(src, time.Hour, nil)
	reporter.now = func() time.Time { return clock }
	reporter.Start()

	src.runs.Store(100)
	clock = clock.Add(time.Second)
	reporter.sample()

	src.runs.Store(300)
	clock = clock.Add(2 * time.Second)
	reporter.Stop()

	history := reporter.History()
	if len(history) != 2 {
		t.Fatalf("History() len = %d, want 2", len(history))
	}
	if history[0].Runs != 100 || history[0].Rate != 100 {
		t.Errorf("first sample = %+v, want 100 runs at 100/s", history[0])
	}
	if history[1].ElapsedSeconds != 3 || history[1].Rate != 100 {
		t.Errorf("second sample = %+v, want 3s at 100/s", history[1])
	}
}

func TestProgressReporterStopIdempotent(t *testing.T) {
	reporter := NewProgressReporter(&fakeSource{}, 0, nil)
	reporter.Stop()
	reporter.Start()
	reporter.Start()
	reporter.Stop()
	reporter.Stop()
	if len(reporter.History()) != 1 {
		t.Errorf("History() len = %d, want the final sample only", len(reporter.History()))
	}
}
