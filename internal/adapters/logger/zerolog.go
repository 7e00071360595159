// Package logger provides the zerolog implementation of ports.Logger.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements the ports.Logger interface using zerolog.
type ZeroLogger struct {
	log zerolog.Logger
}

// New creates a zerolog-backed logger writing human-readable output to
// stderr. Unknown level strings fall back to info.
func New(level string) *ZeroLogger {
	return NewWithWriter(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// NewWithWriter creates a zerolog-backed logger with a custom writer.
func NewWithWriter(level string, w io.Writer) *ZeroLogger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZeroLogger{log: zl}
}

func emit(evt *zerolog.Event, err error, msg string, fields ...map[string]interface{}) {
	if err != nil {
		evt = evt.Err(err)
	}
	if len(fields) > 0 && fields[0] != nil {
		evt = evt.Fields(fields[0])
	}
	evt.Msg(msg)
}

// Debug logs a message at Debug level.
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	emit(l.log.Debug(), nil, msg, fields...)
}

// Info logs a message at Info level.
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	emit(l.log.Info(), nil, msg, fields...)
}

// Warn logs a message at Warning level.
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	emit(l.log.Warn(), nil, msg, fields...)
}

// Error logs an error message at Error level.
func (l *ZeroLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	emit(l.log.Error(), err, msg, fields...)
}
