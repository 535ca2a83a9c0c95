package observe

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// structuredLogger writes JSON lines through log/slog.
type structuredLogger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLogLevel(level).slogLevel(),
		ReplaceAttr: redactAttr,
	})
	return &structuredLogger{logger: slog.New(handler)}
}

// WithRequest returns a logger with request context attached.
func (l *structuredLogger) WithRequest(meta RequestMeta) Logger {
	args := []any{
		slog.String("request.operation", meta.Operation),
		slog.String("request.method", meta.Method),
		slog.String("request.endpoint", meta.Endpoint),
	}
	if meta.ID != "" {
		args = append(args, slog.String("request.id", meta.ID))
	}
	return &structuredLogger{logger: l.logger.With(args...)}
}

// With returns a logger that adds fields to every entry.
func (l *structuredLogger) With(fields ...Field) Logger {
	return &structuredLogger{logger: l.logger.With(fieldArgs(fields)...)}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.logger.InfoContext(ctx, msg, fieldArgs(fields)...)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.logger.WarnContext(ctx, msg, fieldArgs(fields)...)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.logger.ErrorContext(ctx, msg, fieldArgs(fields)...)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.logger.DebugContext(ctx, msg, fieldArgs(fields)...)
}

func fieldArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if isRedactedField(a.Key) {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	for _, k := range RedactedFields {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

var _ Logger = (*structuredLogger)(nil)
