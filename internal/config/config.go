// Package config holds evaluation settings and builds the engine logger.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxRecursionDepth bounds recursive CTE iterations unless configured
// otherwise.
const DefaultMaxRecursionDepth = 1000

const (
	EnvMaxRecursionDepth = "FUNCSQL_MAX_RECURSION_DEPTH"
	EnvLogLevel          = "FUNCSQL_LOG_LEVEL"
)

// Config holds the evaluation settings.
type Config struct {
	MaxRecursionDepth int    `yaml:"max_recursion_depth"` // iterations before a recursive CTE fails
	LogLevel          string `yaml:"log_level"`           // debug, info, warn, error (default "info")
}

func Default() Config {
	return Config{MaxRecursionDepth: DefaultMaxRecursionDepth, LogLevel: "info"}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from FUNCSQL_* environment variables. Unset
// variables leave the field alone.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvMaxRecursionDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxRecursionDepth, err)
		}
		c.MaxRecursionDepth = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.MaxRecursionDepth <= 0 {
		return fmt.Errorf("max_recursion_depth must be positive, got %d", c.MaxRecursionDepth)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log_level %q", c.LogLevel)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// Leveled returns a logger that forwards records at or above level to l's
// handler. Unlike a handler's own threshold it can also lower the level, so
// a debug setting takes effect on a logger built for info.
func Leveled(l *slog.Logger, level slog.Level) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return slog.New(levelHandler{inner: l.Handler(), level: level})
}

type levelHandler struct {
	inner slog.Handler
	level slog.Level
}

func (h levelHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{inner: h.inner.WithGroup(name), level: h.level}
}
