package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level      zerolog.Level
	Format     string // "json" or "console"
	TimeFormat string
	Out        io.Writer
}

// DefaultConfig returns console logging at warn level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.WarnLevel,
		Format:     "console",
		TimeFormat: time.Kitchen,
		Out:        os.Stderr,
	}
}

// New creates a zerolog logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	var output io.Writer = out
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to def.
func ParseLevel(name string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	}
	return def
}

// NewFromValues builds a logger from config strings, letting the environment override them.
// SHADER_BUSTER_LOG_LEVEL: trace, debug, info, warn, error, off
// SHADER_BUSTER_LOG_FORMAT: json, console
func NewFromValues(level, format string) zerolog.Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level, cfg.Level)
	if format == "json" || format == "console" {
		cfg.Format = format
	}

	if env := os.Getenv("SHADER_BUSTER_LOG_LEVEL"); env != "" {
		cfg.Level = ParseLevel(env, cfg.Level)
	}
	if env := os.Getenv("SHADER_BUSTER_LOG_FORMAT"); env == "json" || env == "console" {
		cfg.Format = env
	}

	return New(cfg)
}
