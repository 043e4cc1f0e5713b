package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// engineConfig is the subset of ruleshell's configuration that isn't
// specific to a single fixture: where to persist traces, and the
// logging level. Per-run engine options (maxCycles, trace) live in the
// fixture itself so a fixture is self-contained.
type engineConfig struct {
	AuditDB  string `mapstructure:"auditDB"`
	LogLevel string `mapstructure:"logLevel"`
}

func loadConfig(path string) (*engineConfig, error) {
	v := viper.New()
	v.SetDefault("logLevel", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg engineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
