package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. An empty level means info and an
// empty format means json; "console" selects the development encoder.
func NewLogger(s LoggingSettings) (*zap.Logger, error) {
	level, err := s.level()
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch s.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", s.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

func (s LoggingSettings) level() (zapcore.Level, error) {
	if s.Level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s.Level)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s.Level, err)
	}
	return l, nil
}
