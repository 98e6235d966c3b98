package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/torosent/crankbench/internal/workload"
)

const (
	DefaultWorkload = "fastrandom"
	DefaultRuns     = 10000
)

type Config struct {
	Workload          string         `mapstructure:"workload"`
	Runs              int            `mapstructure:"runs"`
	Threads           int            `mapstructure:"threads"`
	Seed              int64          `mapstructure:"seed"`
	LatencyTiming     bool           `mapstructure:"latency_timing"`
	CompletionTimeout time.Duration  `mapstructure:"completion_timeout"`
	Rate              float64        `mapstructure:"rate"`
	Arrival           ArrivalConfig  `mapstructure:"arrival"`
	Retries           int            `mapstructure:"retries"`
	RetryDelay        time.Duration  `mapstructure:"retry_delay"`
	LogErrors         bool           `mapstructure:"log_errors"`
	Params            ParamsConfig   `mapstructure:"params"`
	JSONOutput        bool           `mapstructure:"json_output"`
	HTMLOutput        string         `mapstructure:"html_output"`
	Progress          bool           `mapstructure:"progress"`
	Dashboard         bool           `mapstructure:"dashboard"`
	Log               LogConfig      `mapstructure:"log"`
	Metrics           MetricsConfig  `mapstructure:"metrics"`
	Tracing           TracingConfig  `mapstructure:"tracing"`
	Baseline          BaselineConfig `mapstructure:"baseline"`
	Thresholds        []string       `mapstructure:"thresholds"`
	ConfigFile        string         `mapstructure:"-"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

// ParamsConfig holds the settings of the built-in workloads.
type ParamsConfig struct {
	Iterations   int           `mapstructure:"iterations"`    // fastrandom draws per iteration
	Sleep        time.Duration `mapstructure:"sleep"`         // sleep pause per iteration
	Document     string        `mapstructure:"document"`      // jsonpath inline document
	DocumentFile string        `mapstructure:"document_file"` // jsonpath document path
	Path         string        `mapstructure:"path"`          // jsonpath query
	FailAt       int           `mapstructure:"fail_at"`       // failing run index
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // serve /metrics here when set
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether an OTLP endpoint is configured, directly or via
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

type BaselineConfig struct {
	File        string  `mapstructure:"file"`
	RedisAddr   string  `mapstructure:"redis_addr"`
	RedisPrefix string  `mapstructure:"redis_prefix"`
	Key         string  `mapstructure:"key"`
	Save        bool    `mapstructure:"save"`
	Tolerance   float64 `mapstructure:"tolerance"` // allowed regression as a fraction
}

// Enabled reports whether a baseline store is configured.
func (b BaselineConfig) Enabled() bool {
	return b.File != "" || b.RedisAddr != ""
}

// WorkloadParams converts the workload settings for workload.New.
func (c Config) WorkloadParams() workload.Params {
	return workload.Params{
		Iterations: c.Params.Iterations,
		Sleep:      c.Params.Sleep,
		Document:   c.Params.Document,
		Path:       c.Params.Path,
		FailAt:     c.Params.FailAt,
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Workload) == "" {
		issues = append(issues, "workload is required (use --help for usage information)")
	} else if !slices.Contains(workload.Names(), c.Workload) {
		issues = append(issues, fmt.Sprintf("workload %q is not supported (available: %s)", c.Workload, strings.Join(workload.Names(), ", ")))
	}

	if c.Threads > 512 {
		fmt.Fprintf(os.Stderr, "WARNING: High thread count configured (%d workers). Results will be dominated by scheduling overhead.\n", c.Threads)
	}

	if c.Runs < 1 {
		issues = append(issues, "runs must be >= 1")
	}
	if c.Threads < 1 {
		issues = append(issues, "threads must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.RetryDelay < 0 {
		issues = append(issues, "retry_delay must be >= 0")
	}
	if c.CompletionTimeout < 0 {
		issues = append(issues, "completion_timeout must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Dashboard && c.Progress {
		issues = append(issues, "dashboard and progress are mutually exclusive")
	}

	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateParams(c.Workload, c.Params)...)
	issues = append(issues, validateLogConfig(c.Log)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)
	issues = append(issues, validateBaselineConfig(c.Baseline)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateParams(name string, p ParamsConfig) []string {
	var issues []string
	if p.Iterations < 0 {
		issues = append(issues, "params: iterations must be >= 0")
	}
	if p.Sleep < 0 {
		issues = append(issues, "params: sleep must be >= 0")
	}
	if p.FailAt < 0 {
		issues = append(issues, "params: fail_at must be >= 0")
	}
	if strings.TrimSpace(p.Document) != "" && strings.TrimSpace(p.DocumentFile) != "" {
		issues = append(issues, "params: document and document_file are mutually exclusive")
	}
	if name == "jsonpath" && strings.TrimSpace(p.Document) == "" && strings.TrimSpace(p.DocumentFile) == "" {
		issues = append(issues, "params: document or document_file is required for jsonpath")
	}
	return issues
}

func validateLogConfig(l LogConfig) []string {
	var issues []string
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log: level %q is not supported", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "json", "console":
	default:
		issues = append(issues, fmt.Sprintf("log: format must be 'json' or 'console', got %q", l.Format))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}

func validateBaselineConfig(b BaselineConfig) []string {
	var issues []string
	if b.File != "" && b.RedisAddr != "" {
		issues = append(issues, "baseline: file and redis_addr are mutually exclusive")
	}
	if (b.Save || b.Key != "") && !b.Enabled() {
		issues = append(issues, "baseline: file or redis_addr is required when a key is used")
	}
	if b.Enabled() && strings.TrimSpace(b.Key) == "" {
		issues = append(issues, "baseline: key is required")
	}
	if b.Tolerance < 0 {
		issues = append(issues, "baseline: tolerance must be >= 0")
	}
	return issues
}
