// Package log provides a simplified logging interface for resolvr.
// It wraps go.uber.org/zap to provide structured logging with sensible
// defaults and convenient helper functions for different log levels.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance.
// Logs go to stderr so piped result output stays clean.
var Logger = newLogger(zap.WarnLevel)

func newLogger(lvl zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		// If we can't build the logger, fall back to a no-op logger
		// This should never happen with the default config, but we handle it anyway
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel rebuilds the global logger at the given level. Used by the
// CLI's verbosity flag; LOG_LEVEL still takes precedence.
func SetLevel(lvl zapcore.Level) {
	Logger = newLogger(lvl)
}

// Info logs a message at info level with optional key-value pairs.
func Info(msg string, kv ...any) { Logger.Infow(msg, kv...) }

// Infof logs a formatted message at info level.
func Infof(format string, a ...any) { Logger.Infof(format, a...) }

// Warn logs a message at warn level with optional key-value pairs.
func Warn(msg string, kv ...any) { Logger.Warnw(msg, kv...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, a ...any) { Logger.Warnf(format, a...) }

// Error logs a message at error level with optional key-value pairs.
func Error(msg string, kv ...any) { Logger.Errorw(msg, kv...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, a ...any) { Logger.Errorf(format, a...) }

// Debug logs a message at debug level with optional key-value pairs.
func Debug(msg string, kv ...any) { Logger.Debugw(msg, kv...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, a ...any) { Logger.Debugf(format, a...) }

// Fatalf logs a formatted message at fatal level, then calls os.Exit(1).
func Fatalf(format string, a ...any) { Logger.Fatalf(format, a...) }
