package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	return [...]string{"DEBUG", "INFO", "WARN", "ERROR"}[l]
}

var slogLevels = map[LogLevel]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
}

// Logger emits structured JSON log lines. Field chaining via WithField /
// WithFields / WithError returns derived loggers; the receiver is never
// mutated, so a Logger is safe to share across goroutines.
type Logger struct {
	slog  *slog.Logger
	level LogLevel
}

// NewLogger creates a logger writing JSON to output at the given level.
// A nil output defaults to stdout.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: slogLevels[level],
	})
	return &Logger{slog: slog.New(handler), level: level}
}

func (l *Logger) derive(args ...interface{}) *Logger {
	return &Logger{slog: l.slog.With(args...), level: l.level}
}

// WithField returns a logger that includes key=value on every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(key, value)
}

// WithFields returns a logger that includes every given field.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(args...)
}

// WithError returns a logger carrying the error message as a field.
// A nil error returns the receiver unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive("error", err.Error())
}

func (l *Logger) Debug(message string) { l.slog.Debug(message) }
func (l *Logger) Info(message string)  { l.slog.Info(message) }
func (l *Logger) Warn(message string)  { l.slog.Warn(message) }
func (l *Logger) Error(message string) { l.slog.Error(message) }

type contextKey string

const (
	// RequestIDKey carries the request ID string
	RequestIDKey contextKey = "request_id"
	// LoggerKey carries a *Logger
	LoggerKey contextKey = "logger"
)

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID returns the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetLogger returns the logger from the context, or a default Info-level
// logger when none was stored.
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerKey).(*Logger); ok {
		return logger
	}
	return NewLogger(InfoLevel, os.Stdout)
}

// FromContext returns the context's logger with the request ID attached
// when one is present.
func FromContext(ctx context.Context) *Logger {
	logger := GetLogger(ctx)
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	return logger
}
