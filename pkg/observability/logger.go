// Package observability provides the structured logging, metrics, and
// health probing shared by the server, the CLI, and the extension host.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogFormat selects the log encoding.
type LogFormat string

const (
	// LogFormatText is the human-oriented development format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON is the machine-oriented production format.
	LogFormatJSON LogFormat = "json"
)

// LogLevel names a minimum slog level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogConfig describes how the process logger is built.
type LogConfig struct {
	// Level is the minimum level that gets emitted.
	Level LogLevel
	// Format selects text or json encoding.
	Format LogFormat
	// Output receives the log stream; nil means os.Stderr.
	Output io.Writer
	// AddSource attaches the file:line of the call site.
	AddSource bool
	// ServiceName tags every record.
	ServiceName string
	// ServiceVersion tags every record.
	ServiceVersion string
}

// DefaultLogConfig is the development setup: readable text on stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:          LogLevelInfo,
		Format:         LogFormatText,
		Output:         os.Stderr,
		ServiceName:    "atrium",
		ServiceVersion: "dev",
	}
}

// ProductionLogConfig is the deployment setup: JSON on stdout with source
// locations.
func ProductionLogConfig() LogConfig {
	return LogConfig{
		Level:          LogLevelInfo,
		Format:         LogFormatJSON,
		Output:         os.Stdout,
		AddSource:      true,
		ServiceName:    "atrium",
		ServiceVersion: "unknown",
	}
}

// NewLogger builds a slog.Logger from cfg. The returned logger stamps every
// record with the service identity and with any correlation or request ID
// carried by the logging call's context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	if cfg.Format == LogFormatJSON {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}

	var identity []slog.Attr
	if cfg.ServiceName != "" {
		identity = append(identity, slog.String("service", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		identity = append(identity, slog.String("version", cfg.ServiceVersion))
	}

	return slog.New(&attributeHandler{handler: inner, attrs: identity})
}

// LoggerFromEnv builds the process logger from ATRIUM_ENV, ATRIUM_LOG_LEVEL,
// ATRIUM_LOG_FORMAT, and ATRIUM_VERSION.
func LoggerFromEnv() *slog.Logger {
	cfg := DefaultLogConfig()
	if os.Getenv("ATRIUM_ENV") == "production" {
		cfg = ProductionLogConfig()
	}
	if v := os.Getenv("ATRIUM_LOG_LEVEL"); v != "" {
		cfg.Level = LogLevel(v)
	}
	if v := os.Getenv("ATRIUM_LOG_FORMAT"); v != "" {
		cfg.Format = LogFormat(v)
	}
	if v := os.Getenv("ATRIUM_VERSION"); v != "" {
		cfg.ServiceVersion = v
	}
	return NewLogger(cfg)
}

var slogLevels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

// parseSlogLevel maps a configured level to slog, defaulting to info for
// unrecognized values.
func parseSlogLevel(level LogLevel) slog.Level {
	if l, ok := slogLevels[level]; ok {
		return l
	}
	return slog.LevelInfo
}

// attributeHandler decorates a handler with fixed attributes and with the
// tracing IDs found in each logging call's context.
type attributeHandler struct {
	handler slog.Handler
	attrs   []slog.Attr
}

func (h *attributeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *attributeHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	r.AddAttrs(contextAttrs(ctx)...)
	return h.handler.Handle(ctx, r)
}

func (h *attributeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attributeHandler{handler: h.handler.WithAttrs(attrs), attrs: h.attrs}
}

func (h *attributeHandler) WithGroup(name string) slog.Handler {
	return &attributeHandler{handler: h.handler.WithGroup(name), attrs: h.attrs}
}

// LogDuration emits a completion record for a timed operation.
func LogDuration(logger *slog.Logger, operation string, start time.Time) {
	logger.Info("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
