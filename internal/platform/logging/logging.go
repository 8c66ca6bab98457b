// Package logging constructs the zap loggers used across every service: a
// single zap.NewProduction (or zap.NewDevelopment for local runs) call per
// process, threaded through constructors rather than used as a global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger appropriate for serviceName. Production encoding
// (JSON) is used unless dev is true, in which case a human-readable console
// encoder is used instead.
func New(serviceName string, dev bool) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// NewAtLevel builds a logger at an explicit level, used by services that
// accept a LOG_LEVEL override.
func NewAtLevel(serviceName string, level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}
