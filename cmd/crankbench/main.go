package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/crankbench/internal/baseline"
	"github.com/torosent/crankbench/internal/config"
	"github.com/torosent/crankbench/internal/dashboard"
	"github.com/torosent/crankbench/internal/harness"
	"github.com/torosent/crankbench/internal/logging"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/output"
	"github.com/torosent/crankbench/internal/telemetry"
	"github.com/torosent/crankbench/internal/threshold"
	"github.com/torosent/crankbench/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return execute(ctx, cfg, os.Stdout, os.Stderr)
}

// execute performs one harness run described by cfg and reports on stdout.
// Diagnostics and progress go to stderr.
func execute(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (err error) {
	log, err := logging.NewWithWriter(logging.Options{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
	}, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()
	tracer := provider.Tracer()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	store, closeStore, err := openBaselineStore(cfg.Baseline)
	if err != nil {
		return err
	}
	defer closeStore()

	runID := ulid.Make().String()
	log = log.With(zap.String("run_id", runID))

	ctx, span := tracing.StartCommandSpan(ctx, tracer, runID, cfg.Workload)
	var stats metrics.Stats
	defer func() {
		tracing.EndSpan(span, err, tracing.StatsAttributes(stats)...)
	}()

	factory, err := buildFactory(cfg, log)
	if err != nil {
		return err
	}

	exec := harness.NewWithOptions(factory, harness.Options{
		Runs:              cfg.Runs,
		Threads:           cfg.Threads,
		Seed:              cfg.Seed,
		LatencyTiming:     cfg.LatencyTiming,
		CompletionTimeout: cfg.CompletionTimeout,
		Logger:            log,
		Tracer:            tracer,
	})

	stats, history, groupErr := runHarness(ctx, cfg, exec, log, stderr)
	stats.RunID = runID
	runErr := exec.Err()

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	var cmp *baseline.Comparison
	if store != nil && runErr == nil {
		cmp, err = compareBaseline(ctx, tracer, store, cfg.Baseline, stats, log)
		if err != nil {
			return err
		}
		if cfg.Baseline.Save {
			if err := saveBaseline(ctx, tracer, store, cfg.Baseline.Key, stats); err != nil {
				return err
			}
			log.Info("baseline saved", zap.String("key", cfg.Baseline.Key))
		}
	}

	if err := report(cfg, stdout, stats, results, cmp); err != nil {
		return err
	}
	if cfg.HTMLOutput != "" {
		if err := writeHTML(cfg.HTMLOutput, stats, output.HTMLReportInput{
			History:    history,
			Thresholds: results,
			Comparison: cmp,
			Tolerance:  cfg.Baseline.Tolerance,
		}); err != nil {
			return err
		}
		log.Info("html report written", zap.String("path", cfg.HTMLOutput))
	}

	switch {
	case runErr != nil:
		return fmt.Errorf("harness run failed (%s): %w", harness.KindOf(runErr), runErr)
	case groupErr != nil:
		return groupErr
	case !threshold.AllPassed(results):
		return fmt.Errorf("%d of %d thresholds failed", countFailed(results), len(results))
	case cmp != nil && len(cmp.Regressions(cfg.Baseline.Tolerance)) > 0:
		return fmt.Errorf("%d metrics regressed against baseline %q", len(cmp.Regressions(cfg.Baseline.Tolerance)), cfg.Baseline.Key)
	}
	return nil
}

// runHarness runs the executor alongside the optional metrics endpoint and
// live views. The returned error comes from the metrics server; the run's
// own error is available from exec.Err.
func runHarness(ctx context.Context, cfg *config.Config, exec *harness.Executor, log *zap.Logger, stderr io.Writer) (metrics.Stats, []output.Sample, error) {
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	tm := telemetry.New()
	if cfg.Metrics.Addr != "" {
		if err := tm.TrackProgress(cfg.Workload, exec.RunsExecuted); err != nil {
			return metrics.Stats{}, nil, err
		}
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		var err error
		dash, err = dashboard.New(exec, dashboard.RunConfig{
			Workload:   cfg.Workload,
			Threads:    cfg.Threads,
			Runs:       cfg.Runs,
			Seed:       exec.Seed(),
			Rate:       cfg.Rate,
			Arrival:    string(cfg.Arrival.Model),
			Retries:    cfg.Retries,
			ConfigFile: cfg.ConfigFile,
		}, stopRun)
		if err != nil {
			return metrics.Stats{}, nil, err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if cfg.Progress || cfg.HTMLOutput != "" {
		var w io.Writer
		if cfg.Progress && !cfg.Dashboard {
			w = stderr
		}
		progress = output.NewProgressReporter(exec, progressInterval, w)
		progress.Start()
	}

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	g, gctx := errgroup.WithContext(runCtx)
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			return tm.Serve(serveCtx, cfg.Metrics.Addr)
		})
	}

	var stats metrics.Stats
	g.Go(func() error {
		defer stopServe()
		_, _ = exec.Run(gctx)
		if dash != nil {
			dash.Stop()
		}
		if progress != nil {
			progress.Stop()
		}
		stats = exec.Stats()
		tm.Observe(stats)
		return nil
	})

	err := g.Wait()
	var history []output.Sample
	if progress != nil {
		history = progress.History()
	}
	return stats, history, err
}

func writeHTML(path string, stats metrics.Stats, in output.HTMLReportInput) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, stats, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func report(cfg *config.Config, w io.Writer, stats metrics.Stats, results []threshold.Result, cmp *baseline.Comparison) error {
	if cfg.JSONOutput {
		if len(results) == 0 && cmp == nil {
			return output.PrintJSONReport(w, stats)
		}
		return output.PrintJSON(w, output.NewJSONReport(stats, results, cmp, cfg.Baseline.Tolerance))
	}
	output.PrintReport(w, stats)
	output.PrintThresholds(w, results)
	if cmp != nil {
		output.PrintComparison(w, *cmp, cfg.Baseline.Tolerance)
	}
	return nil
}

func countFailed(results []threshold.Result) int {
	n := 0
	for _, r := range results {
		if !r.Pass {
			n++
		}
	}
	return n
}
