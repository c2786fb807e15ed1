// Package logger provides structured logging utilities.
package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// New builds a logger writing to stdout. format is "json" (default) or
// "console"; console output colours the level for local runs.
func New(level, format string) (*Logger, error) {
	encoder := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := "json"
	if strings.EqualFold(format, "console") {
		encoding = "console"
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Encoding:         encoding,
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithSession scopes a logger to one dialogue session. An empty
// correlationID is omitted.
func (l *Logger) WithSession(sessionID, correlationID string) *Logger {
	fields := []zap.Field{zap.String("session_id", sessionID)}
	if correlationID != "" {
		fields = append(fields, zap.String("correlation_id", correlationID))
	}
	return l.With(fields...)
}

type correlationKey struct{}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by ContextWithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
