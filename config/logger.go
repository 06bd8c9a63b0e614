package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger: JSON in production, console otherwise.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("app", cfg.AppID)), nil
}
