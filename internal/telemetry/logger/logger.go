// Package logger provides structured logging for the secure store.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Output formats.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console" // alias of text
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is json, text or console. Empty means json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel converts a level name. Matching is case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", FormatJSON, FormatText, FormatConsole:
		return true
	}
	return false
}

// structured is the slog-backed Logger.
type structured struct {
	logger *slog.Logger
	ctx    context.Context
}

// level is shared by every logger built with New so SetLevel applies to
// all of them, including the Badger adapter.
var level = new(slog.LevelVar)

// New creates a logger. The level also becomes the process-wide level.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if !ValidFormat(cfg.Format) {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	level.Set(lvl)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case FormatText, FormatConsole:
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}
	return &structured{logger: slog.New(handler), ctx: context.Background()}, nil
}

// SetLevel changes the process-wide level. Unknown names are ignored.
func SetLevel(name string) {
	if lvl, err := ParseLevel(name); err == nil {
		level.Set(lvl)
	}
}

// GetLevel returns the process-wide level name.
func GetLevel() string {
	switch level.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l *structured) Debug(msg string, args ...any) {
	l.logger.DebugContext(l.ctx, msg, args...)
}

func (l *structured) Info(msg string, args ...any) {
	l.logger.InfoContext(l.ctx, msg, args...)
}

func (l *structured) Warn(msg string, args ...any) {
	l.logger.WarnContext(l.ctx, msg, args...)
}

func (l *structured) Error(msg string, args ...any) {
	l.logger.ErrorContext(l.ctx, msg, args...)
}

func (l *structured) With(args ...any) Logger {
	return &structured{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *structured) WithContext(ctx context.Context) Logger {
	return &structured{logger: l.logger, ctx: ctx}
}

// Slog returns the *slog.Logger behind l, for libraries that take one
// directly (the Badger adapter). Unknown implementations get slog.Default.
func Slog(l Logger) *slog.Logger {
	if s, ok := l.(*structured); ok {
		return s.logger
	}
	return slog.Default()
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return &structured{logger: slog.New(slog.DiscardHandler), ctx: context.Background()}
}

var defaultLogger atomic.Pointer[structured]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*structured))
}

// SetDefault replaces the process default logger. Loggers not created by
// this package are ignored.
func SetDefault(l Logger) {
	if s, ok := l.(*structured); ok {
		defaultLogger.Store(s)
	}
}

// Default returns the process default logger.
func Default() Logger {
	return defaultLogger.Load()
}
