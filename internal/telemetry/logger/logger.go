package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// ErrInvalidConfig is returned by New for an unknown level or format.
var ErrInvalidConfig = errors.New("logger: invalid config")

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying *slog.Logger for packages that accept
	// one directly (connection, transporter, confloader).
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	// Empty means warn.
	Level string
	// Format is text (or console) or json. Empty means text.
	Format string
	// Output defaults to os.Stderr so that log lines never mix with replies.
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// DefaultConfig returns the CLI default: warnings and errors as text on
// stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "text",
		Output: os.Stderr,
	}
}

type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

// level is shared by every logger created with New, so SetLevel applies
// to loggers already handed to connections.
var level = new(slog.LevelVar)

// New creates a logger. It also resets the shared level to cfg.Level.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	h, err := newHandler(cfg, level)
	if err != nil {
		return nil, err
	}
	level.Set(lvl)
	return &slogLogger{logger: slog.New(h), ctx: context.Background()}, nil
}

func newHandler(cfg Config, lvl slog.Leveler) (slog.Handler, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		return slog.NewTextHandler(out, opts), nil
	case "json":
		return slog.NewJSONHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}
}

// ParseLevel converts a level name to a slog.Level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: unknown level %q", ErrInvalidConfig, s)
	}
}

// SetLevel changes the level of every logger created with New. The
// subscribe command calls it when the config file changes.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// GetLevel returns the current shared level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.DebugContext(l.ctx, msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.InfoContext(l.ctx, msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.WarnContext(l.ctx, msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.ErrorContext(l.ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}

var defaultLogger atomic.Pointer[slogLogger]

// Default returns the process-wide logger. Until SetDefault is called it
// writes warnings and errors to stderr at a fixed level.
func Default() Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	h, _ := newHandler(DefaultConfig(), slog.LevelWarn)
	defaultLogger.CompareAndSwap(nil, &slogLogger{logger: slog.New(h), ctx: context.Background()})
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger and installs it as the slog
// default, so packages logging through slog.Default share its output.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		defaultLogger.Store(sl)
		slog.SetDefault(sl.logger)
	}
}
