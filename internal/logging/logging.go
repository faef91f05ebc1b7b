// Package logging builds the process zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoder kinds.
const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// Config holds logger settings.
type Config struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

// DefaultConfig returns info level console logging.
func DefaultConfig() Config {
	return Config{
		Level:   zapcore.InfoLevel.String(),
		Encoder: ConsoleEncoder,
	}
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zcfg zap.Config
	switch cfg.Encoder {
	case JSONEncoder:
		zcfg = zap.NewProductionConfig()
	case ConsoleEncoder, "":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Development = false
	default:
		return nil, fmt.Errorf("unknown log encoder %q", cfg.Encoder)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Sampling = nil

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
