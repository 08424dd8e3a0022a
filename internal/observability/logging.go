// Package observability provides logger construction and the zap-backed
// player message sink.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/crawl/internal/config"
)

// NewLogger builds the engine logger: JSON for machines, colored console
// output for a developer terminal.
//
// Precondition: cfg.Level is one of "debug", "info", "warn", "error" and
// cfg.Format is "json" or "console".
// Postcondition: Returns a logger writing to stderr, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, opts ...zap.Option) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("observability.NewLogger: level %q: %w", cfg.Level, err)
	}
	zcfg, err := formatConfig(cfg.Format)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zcfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("observability.NewLogger: %w", err)
	}
	return logger, nil
}

func formatConfig(format string) (zap.Config, error) {
	switch format {
	case "json":
		c := zap.NewProductionConfig()
		c.Sampling = nil
		return c, nil
	case "console":
		c := zap.NewDevelopmentConfig()
		c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return c, nil
	}
	return zap.Config{}, fmt.Errorf("observability.NewLogger: unknown format %q", format)
}
