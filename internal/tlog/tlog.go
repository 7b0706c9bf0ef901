// Package tlog is a thin structured-logging wrapper around zap, in the
// shape of erigon-lib's log/v3 package: a package-level default logger,
// a constructor that swaps it, and short Debug/Info/Warn/Error helpers
// that accept loosely-typed key/value pairs instead of requiring every
// call site to build zap.Field values directly.
package tlog

import (
	"go.uber.org/zap"
)

var logger = mustBuild()

func mustBuild() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		// fall back to a no-op logger rather than panic at package init.
		return zap.NewNop()
	}
	return l
}

// SetLevel swaps the process-wide logger for one at the requested
// level. Meant to be called once at startup, typically via
// tribles.Configure.
func SetLevel(debug bool) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return
	}
	logger = l
}

func fields(kv []any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	fs := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fs = append(fs, zap.Any(key, kv[i+1]))
	}
	return fs
}

func Debug(msg string, kv ...any) { logger.Debug(msg, fields(kv)...) }
func Info(msg string, kv ...any)  { logger.Info(msg, fields(kv)...) }
func Warn(msg string, kv ...any)  { logger.Warn(msg, fields(kv)...) }
func Error(msg string, kv ...any) { logger.Error(msg, fields(kv)...) }

// Sync flushes any buffered log entries; callers should defer it from main.
func Sync() error { return logger.Sync() }
