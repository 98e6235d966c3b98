package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crankbench",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Harness flags
	flags.StringP("workload", "w", DefaultWorkload, "Workload to run (failing, fastrandom, jsonpath, noop, sleep)")
	flags.IntP("runs", "n", DefaultRuns, "Total number of iterations across all threads")
	flags.IntP("threads", "c", 1, "Number of concurrent worker threads")
	flags.Int64("seed", 0, "Base seed; thread i receives seed+i (0 picks a random seed)")
	flags.Bool("latency-timing", true, "Time each iteration")
	flags.Duration("completion-timeout", 0, "Abort if workers have not finished within this time after start (0 waits forever)")

	// Pacing and middleware flags
	flags.Float64P("rate", "r", 0, "Iterations per second across all threads (0 means unlimited)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model to use when pacing iterations (uniform or poisson)")
	flags.Int("retries", 0, "Number of retries per failed iteration")
	flags.Duration("retry-delay", 0, "Delay between retries")
	flags.Bool("log-errors", false, "Log each failed iteration to stderr")

	// Workload parameter flags
	flags.Int("iterations", 0, "fastrandom: draws per iteration (0 uses the default)")
	flags.Duration("sleep", 0, "sleep: pause per iteration")
	flags.String("document", "", "jsonpath: inline JSON document")
	flags.String("document-file", "", "jsonpath: path to a JSON document")
	flags.String("path", "", "jsonpath: query path (e.g. $.items)")
	flags.Int("fail-at", 0, "failing: run index that fails (0 never fails)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("progress", false, "Print progress to stderr while running")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Observability flags
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flags.String("tracing-endpoint", "", "OTLP endpoint for run traces")
	flags.String("tracing-protocol", "grpc", "OTLP protocol (grpc or http)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.String("tracing-service-name", "crankbench", "Service name reported in traces")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")

	// Baseline flags
	flags.String("baseline-file", "", "YAML file holding baselines")
	flags.String("baseline-redis", "", "Redis address holding baselines")
	flags.String("baseline-prefix", "", "Key prefix for baselines stored in Redis")
	flags.String("baseline-key", "", "Name of the baseline to compare against")
	flags.Bool("save-baseline", false, "Store this run as the baseline")
	flags.Float64("baseline-tolerance", 0, "Allowed regression against the baseline as a fraction (0.1 = 10%)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'iteration_duration:p95 < 5')")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	overrides := []func() error{
		func() error { return overrideString(fs, "workload", &cfg.Workload) },
		func() error { return override(fs, "runs", fs.GetInt, &cfg.Runs) },
		func() error { return override(fs, "threads", fs.GetInt, &cfg.Threads) },
		func() error { return override(fs, "seed", fs.GetInt64, &cfg.Seed) },
		func() error { return override(fs, "latency-timing", fs.GetBool, &cfg.LatencyTiming) },
		func() error { return override(fs, "completion-timeout", fs.GetDuration, &cfg.CompletionTimeout) },
		func() error { return override(fs, "rate", fs.GetFloat64, &cfg.Rate) },
		func() error {
			var model string
			if err := overrideString(fs, "arrival-model", &model); err != nil || model == "" {
				return err
			}
			cfg.Arrival.Model = ArrivalModel(strings.ToLower(model))
			return nil
		},
		func() error { return override(fs, "retries", fs.GetInt, &cfg.Retries) },
		func() error { return override(fs, "retry-delay", fs.GetDuration, &cfg.RetryDelay) },
		func() error { return override(fs, "log-errors", fs.GetBool, &cfg.LogErrors) },
		func() error { return override(fs, "iterations", fs.GetInt, &cfg.Params.Iterations) },
		func() error { return override(fs, "sleep", fs.GetDuration, &cfg.Params.Sleep) },
		func() error {
			if !fs.Changed("document") {
				return nil
			}
			cfg.Params.DocumentFile = ""
			return override(fs, "document", fs.GetString, &cfg.Params.Document)
		},
		func() error {
			if !fs.Changed("document-file") {
				return nil
			}
			cfg.Params.Document = ""
			return overrideString(fs, "document-file", &cfg.Params.DocumentFile)
		},
		func() error { return overrideString(fs, "path", &cfg.Params.Path) },
		func() error { return override(fs, "fail-at", fs.GetInt, &cfg.Params.FailAt) },
		func() error { return override(fs, "json-output", fs.GetBool, &cfg.JSONOutput) },
		func() error { return overrideString(fs, "html-output", &cfg.HTMLOutput) },
		func() error { return override(fs, "progress", fs.GetBool, &cfg.Progress) },
		func() error { return override(fs, "dashboard", fs.GetBool, &cfg.Dashboard) },
		func() error { return overrideString(fs, "log-level", &cfg.Log.Level) },
		func() error { return overrideString(fs, "log-format", &cfg.Log.Format) },
		func() error { return overrideString(fs, "metrics-addr", &cfg.Metrics.Addr) },
		func() error { return overrideString(fs, "tracing-endpoint", &cfg.Tracing.Endpoint) },
		func() error { return overrideString(fs, "tracing-protocol", &cfg.Tracing.Protocol) },
		func() error { return override(fs, "tracing-insecure", fs.GetBool, &cfg.Tracing.Insecure) },
		func() error { return overrideString(fs, "tracing-service-name", &cfg.Tracing.ServiceName) },
		func() error { return override(fs, "tracing-sample-rate", fs.GetFloat64, &cfg.Tracing.SampleRate) },
		func() error { return overrideString(fs, "baseline-file", &cfg.Baseline.File) },
		func() error { return overrideString(fs, "baseline-redis", &cfg.Baseline.RedisAddr) },
		func() error { return overrideString(fs, "baseline-prefix", &cfg.Baseline.RedisPrefix) },
		func() error { return overrideString(fs, "baseline-key", &cfg.Baseline.Key) },
		func() error { return override(fs, "save-baseline", fs.GetBool, &cfg.Baseline.Save) },
		func() error { return override(fs, "baseline-tolerance", fs.GetFloat64, &cfg.Baseline.Tolerance) },
		func() error { return override(fs, "threshold", fs.GetStringSlice, &cfg.Thresholds) },
	}
	for _, apply := range overrides {
		if err := apply(); err != nil {
			return err
		}
	}
	return nil
}

// override copies flag name into dst when it was set on the command line.
func override[T any](fs *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if !fs.Changed(name) {
		return nil
	}
	val, err := get(name)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func overrideString(fs *pflag.FlagSet, name string, dst *string) error {
	if !fs.Changed(name) {
		return nil
	}
	val, err := fs.GetString(name)
	if err != nil {
		return err
	}
	*dst = strings.TrimSpace(val)
	return nil
}
