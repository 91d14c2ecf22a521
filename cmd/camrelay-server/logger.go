package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/config"
)

// newLogger builds a JSON production logger for ENV=prod and a console
// development logger otherwise. LOG_LEVEL overrides the default level.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Env == "prod" {
		zc = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = level
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "camrelay")), nil
}
