package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvFilter, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvFilter, "")

	path := filepath.Join(t.TempDir(), "proxycheck.yaml")
	data := `
log:
  level: debug
  development: true
run:
  filter: "^sealed"
  fail_fast: true
  parallel: 4
  paths: [testdata, more]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "^sealed", cfg.Run.Filter)
	assert.True(t, cfg.Run.FailFast)
	assert.Equal(t, 4, cfg.Run.Parallel)
	assert.Equal(t, []string{"testdata", "more"}, cfg.Run.Paths)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvFilter, "frozen")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "frozen", cfg.Run.Filter)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "invalid log level")

	cfg = Default()
	cfg.Run.Parallel = 0
	assert.ErrorContains(t, cfg.Validate(), "invalid parallel")
}

func TestLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.Logger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = cfg.Logger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	cfg.Log.Level = "loud"
	_, err = cfg.Logger(false)
	assert.Error(t, err)
}
