// Package dashboard renders a live terminal view of a running harness.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/crankbench/internal/siformat"
)

// Source is the live view of a running harness. All methods must be safe to
// call while the run is in progress.
type Source interface {
	RunsExecuted() int
	RunsTarget() int
	ResultSum() int64
}

// RunConfig holds run parameters for display.
type RunConfig struct {
	Workload   string
	Threads    int
	Runs       int
	Seed       int64
	Rate       float64 // iterations per second, 0 = unlimited
	Arrival    string
	Retries    int
	ConfigFile string
}

const historySize = 100

// Dashboard renders a live terminal UI for harness progress.
type Dashboard struct {
	source       Source
	cfg          RunConfig
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex
	now          func() time.Time

	grid        *ui.Grid
	gauge       *widgets.Gauge
	rateSpark   *widgets.SparklineGroup
	summaryPara *widgets.Paragraph
	runPara     *widgets.Paragraph

	rateHistory []float64
	peakRate    float64
	startTime   time.Time
	lastTime    time.Time
	lastRuns    int
}

// New initializes the terminal and creates a Dashboard. shutdownFunc is
// called when the user presses q or Ctrl-C.
func New(source Source, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	d := newDashboard(source, cfg, shutdownFunc)
	d.setupGrid()
	return d, nil
}

func newDashboard(source Source, cfg RunConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		source:       source,
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		now:          time.Now,
		rateHistory:  make([]float64, 0, historySize),
	}
	d.startTime = d.now()
	d.lastTime = d.startTime
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	d.gauge = widgets.NewGauge()
	d.gauge.Title = "Progress"
	d.gauge.BarColor = ui.ColorBlue
	d.gauge.BorderStyle.Fg = ui.ColorCyan
	d.gauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	spark := widgets.NewSparkline()
	spark.Title = "Runs/s"
	spark.LineColor = ui.ColorGreen
	spark.Data = []float64{0}
	d.rateSpark = widgets.NewSparklineGroup(spark)
	d.rateSpark.Title = "Throughput"
	d.rateSpark.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.runPara = widgets.NewParagraph()
	d.runPara.Title = "Counters"
	d.runPara.Text = "Waiting for data..."
	d.runPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.15,
			ui.NewCol(1.0, d.gauge),
		),
		ui.NewRow(0.65,
			ui.NewCol(0.65, d.rateSpark),
			ui.NewCol(0.35, d.runPara),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

// update refreshes all widget data from the source.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	runs := d.source.RunsExecuted()
	target := d.source.RunsTarget()
	elapsed := now.Sub(d.startTime)

	rate := 0.0
	if dt := now.Sub(d.lastTime).Seconds(); dt > 0 {
		rate = float64(runs-d.lastRuns) / dt
	}
	d.lastTime, d.lastRuns = now, runs
	if rate > d.peakRate {
		d.peakRate = rate
	}

	d.rateHistory = append(d.rateHistory, rate)
	if len(d.rateHistory) > historySize {
		d.rateHistory = d.rateHistory[1:]
	}
	d.rateSpark.Sparklines[0].Data = d.rateHistory
	d.rateSpark.Title = fmt.Sprintf("Throughput | Current: %s/s | Peak: %s/s",
		strings.TrimSpace(siformat.Format(rate)), strings.TrimSpace(siformat.Format(d.peakRate)))

	percent := 0
	if target > 0 {
		percent = runs * 100 / target
	}
	d.gauge.Percent = min(percent, 100)
	d.gauge.Label = fmt.Sprintf("%d / %d runs (%d%%)", runs, target, d.gauge.Percent)

	d.summaryPara.Text = fmt.Sprintf("%s\nElapsed: %s | ETA: %s",
		d.formatRunParams(), elapsed.Round(time.Second), eta(runs, target, elapsed))

	mean := 0.0
	if elapsed > 0 {
		mean = float64(runs) / elapsed.Seconds()
	}
	d.runPara.Text = fmt.Sprintf(
		"Runs executed:  %d\nRuns remaining: %d\nResult sum:     %d\nMean rate:      %s/s\nPeak rate:      %s/s",
		runs,
		max(target-runs, 0),
		d.source.ResultSum(),
		strings.TrimSpace(siformat.Format(mean)),
		strings.TrimSpace(siformat.Format(d.peakRate)),
	)
}

// eta extrapolates the remaining time from the mean rate so far.
func eta(runs, target int, elapsed time.Duration) string {
	if runs <= 0 || target <= runs {
		return "-"
	}
	remaining := time.Duration(float64(elapsed) * float64(target-runs) / float64(runs))
	return remaining.Round(time.Second).String()
}

// formatRunParams formats the run configuration for display.
func (d *Dashboard) formatRunParams() string {
	parts := []string{fmt.Sprintf("Workload: %s", d.cfg.Workload)}

	if d.cfg.Threads > 0 {
		parts = append(parts, fmt.Sprintf("Threads: %d", d.cfg.Threads))
	}
	if d.cfg.Runs > 0 {
		parts = append(parts, fmt.Sprintf("Runs: %d", d.cfg.Runs))
	}
	parts = append(parts, fmt.Sprintf("Seed: %d", d.cfg.Seed))

	if d.cfg.Rate > 0 {
		arrival := d.cfg.Arrival
		if arrival == "" {
			arrival = "uniform"
		}
		parts = append(parts, fmt.Sprintf("Rate: %g/s (%s)", d.cfg.Rate, arrival))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.cfg.Retries > 0 {
		parts = append(parts, fmt.Sprintf("Retries: %d", d.cfg.Retries))
	}
	if d.cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
