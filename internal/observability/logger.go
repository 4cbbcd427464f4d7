// Package observability provides structured logging helpers for lexatlas.
//
// It wraps zap with turn ID propagation so that every log line emitted while
// processing a conversational turn carries the turn context.
package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexatlas/lexatlas/common/trace"
)

// Setup builds the global zap logger according to the provided level and
// format strings (e.g. level="info", format="json") and installs it via
// zap.ReplaceGlobals. The returned function flushes buffered entries.
func Setup(level, format string) func() {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		// A broken logging config should not take the process down.
		logger = zap.NewNop()
	}
	zap.ReplaceGlobals(logger)
	return func() { _ = logger.Sync() }
}

// WithTurn returns a child logger that always includes the turn_id from ctx.
func WithTurn(ctx context.Context) *zap.Logger {
	id := trace.FromContext(ctx)
	if id == "" {
		return zap.L()
	}
	return zap.L().With(zap.String("turn_id", id))
}
