package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/crankbench/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workload != config.DefaultWorkload {
		t.Errorf("Workload = %q, want %q", cfg.Workload, config.DefaultWorkload)
	}
	if cfg.Runs != config.DefaultRuns {
		t.Errorf("Runs = %d, want %d", cfg.Runs, config.DefaultRuns)
	}
	if cfg.Threads != 1 {
		t.Errorf("Threads = %d, want 1", cfg.Threads)
	}
	if cfg.Seed != 0 {
		t.Errorf("Seed = %d, want 0", cfg.Seed)
	}
	if !cfg.LatencyTiming {
		t.Errorf("LatencyTiming = false, want true")
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %g, want 0", cfg.Rate)
	}
	if cfg.Arrival.Model != config.ArrivalModelUniform {
		t.Errorf("Arrival.Model = %q, want uniform", cfg.Arrival.Model)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v, want warn/console", cfg.Log)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %g, want 1.0", cfg.Tracing.SampleRate)
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{
		"-w", "Sleep",
		"-n", "500",
		"-c", "8",
		"--seed", "42",
		"--latency-timing=false",
		"--completion-timeout", "30s",
		"-r", "250.5",
		"--arrival-model", "POISSON",
		"--retries", "2",
		"--retry-delay", "10ms",
		"--sleep", "1ms",
		"--threshold", "iteration_duration:p95 < 5",
		"--threshold", "failures:count == 0",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workload != "sleep" {
		t.Errorf("Workload = %q, want sleep", cfg.Workload)
	}
	if cfg.Runs != 500 || cfg.Threads != 8 || cfg.Seed != 42 {
		t.Errorf("Runs/Threads/Seed = %d/%d/%d, want 500/8/42", cfg.Runs, cfg.Threads, cfg.Seed)
	}
	if cfg.LatencyTiming {
		t.Errorf("LatencyTiming = true, want false")
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Errorf("CompletionTimeout = %s, want 30s", cfg.CompletionTimeout)
	}
	if cfg.Rate != 250.5 {
		t.Errorf("Rate = %g, want 250.5", cfg.Rate)
	}
	if cfg.Arrival.Model != config.ArrivalModelPoisson {
		t.Errorf("Arrival.Model = %q, want poisson", cfg.Arrival.Model)
	}
	if cfg.Retries != 2 || cfg.RetryDelay != 10*time.Millisecond {
		t.Errorf("Retries/RetryDelay = %d/%s, want 2/10ms", cfg.Retries, cfg.RetryDelay)
	}
	if cfg.Params.Sleep != time.Millisecond {
		t.Errorf("Params.Sleep = %s, want 1ms", cfg.Params.Sleep)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds len = %d, want 2", len(cfg.Thresholds))
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"workload": "jsonpath",
		"runs": 2000,
		"threads": 4,
		"seed": 7,
		"completionTimeout": "1m",
		"rate": 100,
		"jsonOutput": true,
		"params": {"document": "{\"items\":[1,2,3]}", "path": "$.items"},
		"log": {"level": "info", "format": "json"},
		"thresholds": ["iteration_duration:p99 < 10"]
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--threads", "16"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workload != "jsonpath" {
		t.Errorf("Workload = %q, want jsonpath", cfg.Workload)
	}
	if cfg.Runs != 2000 {
		t.Errorf("Runs = %d, want 2000", cfg.Runs)
	}
	if cfg.Threads != 16 {
		t.Errorf("Threads = %d, want 16 (flag override)", cfg.Threads)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.CompletionTimeout != time.Minute {
		t.Errorf("CompletionTimeout = %s, want 1m", cfg.CompletionTimeout)
	}
	if cfg.Rate != 100 {
		t.Errorf("Rate = %g, want 100", cfg.Rate)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.Params.Path != "$.items" || cfg.Params.Document != `{"items":[1,2,3]}` {
		t.Errorf("Params = %+v", cfg.Params)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds len = %d, want 1", len(cfg.Thresholds))
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`
workload: fastrandom
runs: 100000
threads: 8
retry_delay: 2
arrival:
  model: poisson
tracing:
  endpoint: localhost:4317
  insecure: true
  sample_rate: 0.5
baseline:
  file: baselines.yaml
  key: nightly
  tolerance: 0.1
`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runs != 100000 || cfg.Threads != 8 {
		t.Errorf("Runs/Threads = %d/%d, want 100000/8", cfg.Runs, cfg.Threads)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %s, want 2s", cfg.RetryDelay)
	}
	if cfg.Arrival.Model != config.ArrivalModelPoisson {
		t.Errorf("Arrival.Model = %q, want poisson", cfg.Arrival.Model)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || !cfg.Tracing.Insecure || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.Protocol != "grpc" {
		t.Errorf("Tracing.Protocol = %q, want grpc default", cfg.Tracing.Protocol)
	}
	if cfg.Baseline.File != "baselines.yaml" || cfg.Baseline.Key != "nightly" || cfg.Baseline.Tolerance != 0.1 {
		t.Errorf("Baseline = %+v", cfg.Baseline)
	}
}

func TestLoadDocumentFile(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(doc, []byte(`{"a":{"b":[1,2]}}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"-w", "jsonpath", "--document-file", doc, "--path", "a.b"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Params.Document != `{"a":{"b":[1,2]}}` {
		t.Errorf("Params.Document = %q", cfg.Params.Document)
	}

	_, err = config.NewLoader().Load([]string{"--document-file", filepath.Join(dir, "missing.json")})
	if err == nil || !strings.Contains(err.Error(), "document_file") {
		t.Errorf("Load() error = %v, want document_file error", err)
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadRejectsBadFlags(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--runs", "many"}); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
	if _, err := config.NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("Load() error = nil, want missing config file error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Workload: "noop",
			Runs:     10,
			Threads:  2,
			Arrival:  config.ArrivalConfig{Model: config.ArrivalModelUniform},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"unknown workload", func(c *config.Config) { c.Workload = "bogus" }, `workload "bogus" is not supported`},
		{"missing workload", func(c *config.Config) { c.Workload = " " }, "workload is required"},
		{"zero runs", func(c *config.Config) { c.Runs = 0 }, "runs must be >= 1"},
		{"zero threads", func(c *config.Config) { c.Threads = 0 }, "threads must be >= 1"},
		{"negative rate", func(c *config.Config) { c.Rate = -1 }, "rate must be >= 0"},
		{"negative retries", func(c *config.Config) { c.Retries = -1 }, "retries must be >= 0"},
		{"negative timeout", func(c *config.Config) { c.CompletionTimeout = -time.Second }, "completion_timeout must be >= 0"},
		{"dashboard json", func(c *config.Config) { c.Dashboard, c.JSONOutput = true, true }, "dashboard and json-output"},
		{"dashboard progress", func(c *config.Config) { c.Dashboard, c.Progress = true, true }, "dashboard and progress"},
		{"bad arrival", func(c *config.Config) { c.Arrival.Model = "bursty" }, `arrival model "bursty"`},
		{"jsonpath without document", func(c *config.Config) { c.Workload = "jsonpath" }, "document or document_file is required"},
		{"both documents", func(c *config.Config) { c.Params.Document, c.Params.DocumentFile = "{}", "x.json" }, "mutually exclusive"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, `level "loud"`},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "format must be 'json' or 'console'"},
		{"bad tracing protocol", func(c *config.Config) { c.Tracing.Protocol = "udp" }, "protocol must be"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate must be between"},
		{"two baseline stores", func(c *config.Config) {
			c.Baseline = config.BaselineConfig{File: "a.yaml", RedisAddr: "localhost:6379", Key: "k"}
		}, "file and redis_addr are mutually exclusive"},
		{"baseline key without store", func(c *config.Config) { c.Baseline.Key = "k" }, "file or redis_addr is required"},
		{"baseline store without key", func(c *config.Config) { c.Baseline.File = "a.yaml" }, "key is required"},
		{"negative tolerance", func(c *config.Config) {
			c.Baseline = config.BaselineConfig{File: "a.yaml", Key: "k", Tolerance: -0.5}
		}, "tolerance must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.want)
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) || len(verr.Issues()) == 0 {
				t.Errorf("Validate() error is not a ValidationError with issues: %v", err)
			}
		})
	}
}

func TestWorkloadParams(t *testing.T) {
	cfg := config.Config{Params: config.ParamsConfig{
		Iterations: 5,
		Sleep:      time.Millisecond,
		Document:   "{}",
		Path:       "$",
		FailAt:     3,
	}}
	p := cfg.WorkloadParams()
	if p.Iterations != 5 || p.Sleep != time.Millisecond || p.Document != "{}" || p.Path != "$" || p.FailAt != 3 {
		t.Errorf("WorkloadParams() = %+v", p)
	}
}
