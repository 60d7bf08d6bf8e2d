package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"cosmosdb-wrapper/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap/zapcore"
)

const (
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations.
//
// The unformatted methods accept zap fields (zap.String, zap.Error, ...) mixed with
// message arguments; fields become structured log fields, the rest forms the message.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance with configuration taken from the environment
func NewLogger() Logger {
	return NewLoggerWithOutput(os.Stdout, getLogLevel(), getLogFormatter())
}

// NewLoggerWithConfig creates a logger with an explicit level and format ("json" or "text")
func NewLoggerWithConfig(level string, format string) Logger {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}
	if format == "json" {
		formatter = &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}

	return NewLoggerWithOutput(os.Stdout, parsedLevel, formatter)
}

// NewLoggerWithOutput creates a logger writing to out. Tests use it to capture output.
func NewLoggerWithOutput(out io.Writer, level logrus.Level, formatter logrus.Formatter) Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(out)

	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return NewLoggerWithOutput(io.Discard, logrus.PanicLevel, &logrus.TextFormatter{})
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	entry, rest := l.split(args)
	entry.Debug(rest...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	entry, rest := l.split(args)
	entry.Info(rest...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	entry, rest := l.split(args)
	entry.Warn(rest...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	entry, rest := l.split(args)
	entry.Error(rest...)
}

// Debugf logs a formatted debug message
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds context information to the logger using proper context keys
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	fields := logrus.Fields{}

	l.addContextField(ctx, contextkeys.RequestIDKey, "request_id", fields)
	l.addContextField(ctx, contextkeys.DatabaseKey, "database", fields)
	l.addContextField(ctx, contextkeys.ContainerKey, "container", fields)
	l.addContextField(ctx, contextkeys.ComponentKey, "component", fields)
	l.addContextField(ctx, contextkeys.OperationKey, "operation", fields)

	return &LogrusLogger{
		entry: l.entry.WithFields(fields),
	}
}

// addContextField extracts a value from context and adds it to fields if present
func (l *LogrusLogger) addContextField(ctx context.Context, key interface{}, fieldName string, fields logrus.Fields) {
	if val := ctx.Value(key); val != nil {
		if strVal, ok := val.(string); ok && strVal != "" {
			fields[fieldName] = strVal
		}
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{
		entry: l.entry.WithField("component", component),
	}
}

// split separates zap fields from message arguments and folds the fields into the entry.
func (l *LogrusLogger) split(args []interface{}) (*logrus.Entry, []interface{}) {
	var enc *zapcore.MapObjectEncoder
	rest := make([]interface{}, 0, len(args))

	for _, arg := range args {
		field, ok := arg.(zapcore.Field)
		if !ok {
			rest = append(rest, arg)
			continue
		}
		if enc == nil {
			enc = zapcore.NewMapObjectEncoder()
		}
		field.AddTo(enc)
	}

	if enc == nil {
		return l.entry, rest
	}
	return l.entry.WithFields(logrus.Fields(enc.Fields)), rest
}

// levelAliases maps LOG_LEVEL spellings logrus.ParseLevel does not accept
var levelAliases = map[string]logrus.Level{
	"WARNING": logrus.WarnLevel,
	"WARN":    logrus.WarnLevel,
}

// getLogLevel reads LOG_LEVEL, defaulting to info
func getLogLevel() logrus.Level {
	raw := os.Getenv("LOG_LEVEL")
	if level, ok := levelAliases[strings.ToUpper(raw)]; ok {
		return level
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// getLogFormatter picks JSON when LOG_FORMAT=json or ENVIRONMENT is production, text otherwise
func getLogFormatter() logrus.Formatter {
	switch {
	case os.Getenv("LOG_FORMAT") == "json",
		os.Getenv("ENVIRONMENT") == "production",
		os.Getenv("ENVIRONMENT") == "prod":
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		}
	}
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: textTimestamp}
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// Default returns the process-wide logger, built from the environment on first use
func Default() Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewLogger()
	})
	return defaultLogger
}
