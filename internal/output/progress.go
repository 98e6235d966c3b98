package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/crankbench/internal/siformat"
)

// Source is the live view of a running harness.
type Source interface {
	RunsExecuted() int
	RunsTarget() int
}

// Sample is one progress observation.
type Sample struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Runs           int     `json:"runs"`
	Rate           float64 `json:"rate"` // runs per second since the previous sample
}

// ProgressReporter polls a Source, prints a status line and keeps the
// samples for the HTML report.
type ProgressReporter struct {
	source   Source
	interval time.Duration
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	now      func() time.Time

	mu      sync.Mutex
	start   time.Time
	samples []Sample
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval. A nil writer records samples without printing.
func NewProgressReporter(source Source, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		source:   source,
		interval: interval,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		now:      time.Now,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	p.mu.Lock()
	p.start = p.now()
	p.mu.Unlock()
	go p.run()
}

// Stop halts progress updates, takes a final sample and ends the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
		p.tick()
		fmt.Fprintln(p.writer)
	}
}

// History returns the samples taken so far.
func (p *ProgressReporter) History() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sample(nil), p.samples...)
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) tick() {
	s := p.sample()
	fmt.Fprint(p.writer, formatProgress(s, p.source.RunsTarget()))
}

func (p *ProgressReporter) sample() Sample {
	runs := p.source.RunsExecuted()

	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := p.now().Sub(p.start).Seconds()
	s := Sample{ElapsedSeconds: elapsed, Runs: runs}
	prevElapsed, prevRuns := 0.0, 0
	if n := len(p.samples); n > 0 {
		prevElapsed, prevRuns = p.samples[n-1].ElapsedSeconds, p.samples[n-1].Runs
	}
	if dt := elapsed - prevElapsed; dt > 0 {
		s.Rate = float64(runs-prevRuns) / dt
	}
	p.samples = append(p.samples, s)
	return s
}

func formatProgress(s Sample, target int) string {
	pct := 0.0
	if target > 0 {
		pct = float64(s.Runs) / float64(target) * 100
	}
	return fmt.Sprintf("\rRuns: %d/%d (%5.1f%%) | Rate: %s/s | Elapsed: %ss",
		s.Runs, target, pct, siformat.Format(s.Rate), siformat.Format(s.ElapsedSeconds))
}
