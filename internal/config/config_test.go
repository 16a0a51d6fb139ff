package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultMaxRecursionDepth, cfg.MaxRecursionDepth)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funcsql.yml")
	require.NoError(t, os.WriteFile(path, []byte("max_recursion_depth: 25\nlog_level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxRecursionDepth)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funcsql.yml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRecursionDepth, cfg.MaxRecursionDepth)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("max_recursion_depth: [1"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)

	negative := filepath.Join(dir, "negative.yml")
	require.NoError(t, os.WriteFile(negative, []byte("max_recursion_depth: -3"), 0o600))
	_, err = Load(negative)
	assert.ErrorContains(t, err, "max_recursion_depth")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMaxRecursionDepth, "7")
	t.Setenv(EnvLogLevel, "error")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 7, cfg.MaxRecursionDepth)
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
}

func TestApplyEnv_Unset(t *testing.T) {
	t.Setenv(EnvMaxRecursionDepth, "")
	t.Setenv(EnvLogLevel, "")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv(EnvMaxRecursionDepth, "many")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv())

	t.Setenv(EnvMaxRecursionDepth, "")
	t.Setenv(EnvLogLevel, "verbose")
	cfg = Default()
	assert.ErrorContains(t, cfg.ApplyEnv(), "verbose")
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	logger := NewLogger(cfg, &buf)

	logger.Debug("hidden")
	logger.Info("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=1")
}

func TestLeveled(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Default(), &buf)

	Leveled(base, slog.LevelDebug).With("k", 1).Debug("lowered")
	assert.Contains(t, buf.String(), "msg=lowered")
	assert.Contains(t, buf.String(), "k=1")

	buf.Reset()
	Leveled(base, slog.LevelError).Warn("raised")
	assert.Empty(t, buf.String())
}
