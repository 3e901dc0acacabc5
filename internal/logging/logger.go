// Package logging provides the structured logger used across rune.
//
// Every subsystem (ssr, hydrator, router, hotreload, watcher, server) tags
// its records with a component attribute. Three output formats are
// supported: json and text through the log/slog handlers, and pretty
// through charmbracelet/log for the dev loop.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"
)

// LogLevel is a record severity.
type LogLevel = slog.Level

// Levels accepted by ParseLevel.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	// levelOff is above every level a record can carry.
	levelOff = slog.Level(100)
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPretty = "pretty"
)

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}

	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the logging interface passed between packages.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level  LogLevel
	Format string
	Output io.Writer
	// TimeFormat applies to the pretty format. It defaults to time.Kitchen.
	TimeFormat string
}

// NewLogger creates a logger writing to config.Output, or stderr.
func NewLogger(config *LoggerConfig) Logger {
	cfg := LoggerConfig{Level: LevelInfo, Format: FormatPretty}
	if config != nil {
		cfg = *config
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	return &handlerLogger{handler: newHandler(cfg)}
}

func newHandler(cfg LoggerConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case FormatJSON:
		return slog.NewJSONHandler(cfg.Output, opts)
	case FormatText:
		return slog.NewTextHandler(cfg.Output, opts)
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.Kitchen
	}

	return charm.NewWithOptions(cfg.Output, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           charm.Level(cfg.Level),
		Prefix:          "rune",
	})
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return &handlerLogger{handler: slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelOff})}
}

// handlerLogger adapts a slog.Handler. component is kept apart from attrs so
// WithComponent replaces it instead of stacking a second attribute.
type handlerLogger struct {
	handler   slog.Handler
	component string
	attrs     []slog.Attr
}

func (l *handlerLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelDebug, nil, msg, fields)
}

func (l *handlerLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelInfo, nil, msg, fields)
}

func (l *handlerLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelWarn, err, msg, fields)
}

func (l *handlerLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelError, err, msg, fields)
}

// With returns a logger adding fields to every record. A trailing key
// without a value is dropped.
func (l *handlerLogger) With(fields ...interface{}) Logger {
	attrs := make([]slog.Attr, len(l.attrs), len(l.attrs)+len(fields)/2)
	copy(attrs, l.attrs)

	return &handlerLogger{
		handler:   l.handler,
		component: l.component,
		attrs:     appendFields(attrs, fields),
	}
}

func (l *handlerLogger) WithComponent(component string) Logger {
	return &handlerLogger{handler: l.handler, component: component, attrs: l.attrs}
}

func (l *handlerLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields []interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	if l.component != "" {
		record.AddAttrs(slog.String("component", l.component))
	}
	if err != nil {
		record.AddAttrs(slog.String("error", err.Error()))
	}
	record.AddAttrs(l.attrs...)
	record.AddAttrs(appendFields(nil, fields)...)

	_ = l.handler.Handle(ctx, record)
}

func appendFields(attrs []slog.Attr, fields []interface{}) []slog.Attr {
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}

	return attrs
}
