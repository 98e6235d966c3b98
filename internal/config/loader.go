package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and the optional configuration file.
// File settings are applied first; flags that were set explicitly override
// them.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Workload:      DefaultWorkload,
		Runs:          DefaultRuns,
		Threads:       1,
		LatencyTiming: true,
		Arrival:       ArrivalConfig{Model: ArrivalModelUniform},
		Log:           LogConfig{Level: "warn", Format: "console"},
		Tracing:       TracingConfig{Protocol: "grpc", ServiceName: "crankbench", SampleRate: 1.0},
		ConfigFile:    configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Workload = strings.ToLower(strings.TrimSpace(cfg.Workload))
	cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(string(cfg.Arrival.Model))))

	if err := loadDocument(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDocument reads params.document_file into params.document.
func loadDocument(cfg *Config) error {
	path := strings.TrimSpace(cfg.Params.DocumentFile)
	if path == "" || strings.TrimSpace(cfg.Params.Document) != "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("params.document_file: %w", err)
	}
	cfg.Params.Document = string(data)
	return nil
}

// setting binds a config file key to a Config field.
type setting struct {
	key   string
	apply func(raw interface{}) error
}

// keyVariants returns the spellings accepted for a snake_case key:
// json_output, jsonoutput and json-output.
func keyVariants(key string) []string {
	return []string{
		key,
		strings.ReplaceAll(key, "_", ""),
		strings.ReplaceAll(key, "_", "-"),
	}
}

func applySettings(section string, settings map[string]interface{}, fields []setting) error {
	for _, f := range fields {
		raw, ok := lookupSetting(settings, keyVariants(f.key)...)
		if !ok {
			continue
		}
		if err := f.apply(raw); err != nil {
			if section != "" {
				return fmt.Errorf("%s.%s: %w", section, f.key, err)
			}
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return nil
}

func stringSetting(key string, dst *string) setting {
	return setting{key, func(raw interface{}) error {
		val, err := asString(raw)
		*dst = strings.TrimSpace(val)
		return err
	}}
}

func intSetting(key string, dst *int) setting {
	return setting{key, func(raw interface{}) (err error) {
		*dst, err = asInt(raw)
		return err
	}}
}

func int64Setting(key string, dst *int64) setting {
	return setting{key, func(raw interface{}) (err error) {
		*dst, err = asInt64(raw)
		return err
	}}
}

func floatSetting(key string, dst *float64) setting {
	return setting{key, func(raw interface{}) (err error) {
		*dst, err = asFloat64(raw)
		return err
	}}
}

func boolSetting(key string, dst *bool) setting {
	return setting{key, func(raw interface{}) (err error) {
		*dst, err = asBool(raw)
		return err
	}}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	top := []setting{
		stringSetting("workload", &cfg.Workload),
		intSetting("runs", &cfg.Runs),
		intSetting("threads", &cfg.Threads),
		int64Setting("seed", &cfg.Seed),
		boolSetting("latency_timing", &cfg.LatencyTiming),
		{"completion_timeout", func(raw interface{}) (err error) {
			cfg.CompletionTimeout, err = asDuration(raw)
			return err
		}},
		floatSetting("rate", &cfg.Rate),
		intSetting("retries", &cfg.Retries),
		{"retry_delay", func(raw interface{}) (err error) {
			cfg.RetryDelay, err = asDuration(raw)
			return err
		}},
		boolSetting("log_errors", &cfg.LogErrors),
		boolSetting("json_output", &cfg.JSONOutput),
		stringSetting("html_output", &cfg.HTMLOutput),
		boolSetting("progress", &cfg.Progress),
		boolSetting("dashboard", &cfg.Dashboard),
		{"thresholds", func(raw interface{}) (err error) {
			cfg.Thresholds, err = asStringSlice(raw)
			return err
		}},
	}
	if err := applySettings("", settings, top); err != nil {
		return err
	}

	sections := []struct {
		name   string
		fields []setting
	}{
		{"arrival", []setting{
			{"model", func(raw interface{}) error {
				val, err := asString(raw)
				cfg.Arrival.Model = ArrivalModel(val)
				return err
			}},
		}},
		{"params", []setting{
			intSetting("iterations", &cfg.Params.Iterations),
			{"sleep", func(raw interface{}) (err error) {
				cfg.Params.Sleep, err = asDuration(raw)
				return err
			}},
			{"document", func(raw interface{}) (err error) {
				cfg.Params.Document, err = asString(raw)
				return err
			}},
			stringSetting("document_file", &cfg.Params.DocumentFile),
			stringSetting("path", &cfg.Params.Path),
			intSetting("fail_at", &cfg.Params.FailAt),
		}},
		{"log", []setting{
			stringSetting("level", &cfg.Log.Level),
			stringSetting("format", &cfg.Log.Format),
		}},
		{"metrics", []setting{
			stringSetting("addr", &cfg.Metrics.Addr),
		}},
		{"tracing", []setting{
			stringSetting("endpoint", &cfg.Tracing.Endpoint),
			stringSetting("protocol", &cfg.Tracing.Protocol),
			boolSetting("insecure", &cfg.Tracing.Insecure),
			stringSetting("service_name", &cfg.Tracing.ServiceName),
			floatSetting("sample_rate", &cfg.Tracing.SampleRate),
		}},
		{"baseline", []setting{
			stringSetting("file", &cfg.Baseline.File),
			stringSetting("redis_addr", &cfg.Baseline.RedisAddr),
			stringSetting("redis_prefix", &cfg.Baseline.RedisPrefix),
			stringSetting("key", &cfg.Baseline.Key),
			boolSetting("save", &cfg.Baseline.Save),
			floatSetting("tolerance", &cfg.Baseline.Tolerance),
		}},
	}
	for _, sec := range sections {
		raw, ok := lookupSetting(settings, sec.name)
		if !ok || raw == nil {
			continue
		}
		values, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
		if err := applySettings(sec.name, values, sec.fields); err != nil {
			return err
		}
	}
	return nil
}
