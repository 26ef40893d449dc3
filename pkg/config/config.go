// Package config loads proxycheck settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	EnvLogLevel = "PROXYCHECK_LOG_LEVEL"
	EnvFilter   = "PROXYCHECK_FILTER"
)

// ValidLevels are the accepted log.level values.
var ValidLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	Log LogConfig `yaml:"log"`
	Run RunConfig `yaml:"run"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type RunConfig struct {
	Filter   string   `yaml:"filter"` // regular expression over scenario names
	FailFast bool     `yaml:"fail_fast"`
	Parallel int      `yaml:"parallel"` // scenarios run at once
	Paths    []string `yaml:"paths"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Run: RunConfig{Parallel: 1, Paths: []string{"."}},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if filter := os.Getenv(EnvFilter); filter != "" {
		c.Run.Filter = filter
	}
}

func (c *Config) Validate() error {
	if c.Run.Parallel < 1 {
		return fmt.Errorf("invalid parallel: %d (must be at least 1)", c.Run.Parallel)
	}
	for _, l := range ValidLevels {
		if c.Log.Level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %q (valid: %v)", c.Log.Level, ValidLevels)
}

// Logger builds a zap logger for the configured level. verbose forces debug.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
