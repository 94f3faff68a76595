package logging

import (
	"fmt"

	"github.com/banking/fraud-analysis/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Console output with debug level is used when
// debug is set or the format is "console"; JSON production output otherwise.
func New(cfg config.LoggingConfig, debug bool) (*zap.Logger, error) {
	var zcfg zap.Config
	if debug || cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		if !debug {
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	if cfg.OutputPath != "" {
		zcfg.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
