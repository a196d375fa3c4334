// Package log builds the zap loggers used across the module and keeps a
// process-wide default for components that are not handed one explicitly.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultLogger *zap.Logger
	initOnce      sync.Once
)

// New constructs a production JSON logger at the given level. The first
// logger built becomes the process default returned by Provide.
func New(level string) *zap.Logger {
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	initOnce.Do(func() { defaultLogger = logger })
	return logger
}

// Provide returns the process default, or a nop logger when New has not run.
func Provide() *zap.Logger {
	if defaultLogger == nil {
		return zap.NewNop()
	}
	return defaultLogger
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
