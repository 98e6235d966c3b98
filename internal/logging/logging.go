// Package logging builds the structured zap loggers used by crankbench.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/crankbench/internal/harness"
)

// Format selects the log encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Options configure a logger.
type Options struct {
	Level  string // debug, info, warn or error (default info)
	Format Format // json or console (default console)
}

// New builds a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch opts.Format {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
	default:
		return nil, fmt.Errorf("unsupported log format %q (want json or console)", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = level > zapcore.DebugLevel
	cfg.InitialFields = map[string]interface{}{
		"service": "crankbench",
	}
	return cfg.Build()
}

// NewWithWriter builds a logger writing to w, for embedding and tests.
func NewWithWriter(opts Options, w io.Writer) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	switch opts.Format {
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case FormatConsole, "":
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, fmt.Errorf("unsupported log format %q (want json or console)", opts.Format)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core).With(zap.String("service", "crankbench")), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type failureLogger struct {
	log *zap.Logger
}

// FailureLogger adapts a zap logger to report failed iterations.
func FailureLogger(log *zap.Logger) harness.FailureLogger {
	return &failureLogger{log: log}
}

func (f *failureLogger) LogFailure(run int, err error) {
	f.log.Warn("iteration failed",
		zap.Int("run", run),
		zap.String("kind", harness.KindOf(err).String()),
		zap.Error(err),
	)
}
