package core

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// Logger defines the structured logging interface used across the module.
// Arguments after msg are alternating keys and values.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// NopLogger discards everything. It is the default logger.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// NewZapLogger returns a Logger adapter for zap.SugaredLogger.
func NewZapLogger(l *zap.SugaredLogger) Logger {
	return &zapLoggerAdapter{l}
}

type zapLoggerAdapter struct{ l *zap.SugaredLogger }

func (z *zapLoggerAdapter) Debug(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
func (z *zapLoggerAdapter) Info(msg string, kv ...any)  { z.l.Infow(msg, kv...) }
func (z *zapLoggerAdapter) Warn(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
func (z *zapLoggerAdapter) Error(msg string, kv ...any) { z.l.Errorw(msg, kv...) }

// NewZerologLogger returns a Logger adapter for zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLoggerAdapter{l}
}

type zerologLoggerAdapter struct{ l zerolog.Logger }

func (z *zerologLoggerAdapter) Debug(msg string, kv ...any) {
	z.l.Debug().Fields(toFields(kv)).Msg(msg)
}
func (z *zerologLoggerAdapter) Info(msg string, kv ...any) {
	z.l.Info().Fields(toFields(kv)).Msg(msg)
}
func (z *zerologLoggerAdapter) Warn(msg string, kv ...any) {
	z.l.Warn().Fields(toFields(kv)).Msg(msg)
}
func (z *zerologLoggerAdapter) Error(msg string, kv ...any) {
	z.l.Error().Fields(toFields(kv)).Msg(msg)
}

// NewLogrusLogger returns a Logger adapter for logrus.FieldLogger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLoggerAdapter{l}
}

type logrusLoggerAdapter struct{ l logrus.FieldLogger }

func (l *logrusLoggerAdapter) Debug(msg string, kv ...any) {
	l.l.WithFields(logrus.Fields(toFields(kv))).Debug(msg)
}
func (l *logrusLoggerAdapter) Info(msg string, kv ...any) {
	l.l.WithFields(logrus.Fields(toFields(kv))).Info(msg)
}
func (l *logrusLoggerAdapter) Warn(msg string, kv ...any) {
	l.l.WithFields(logrus.Fields(toFields(kv))).Warn(msg)
}
func (l *logrusLoggerAdapter) Error(msg string, kv ...any) {
	l.l.WithFields(logrus.Fields(toFields(kv))).Error(msg)
}

// toFields turns alternating keys and values into a map. A dangling key is
// kept with a nil value; non-string keys are formatted with %v.
func toFields(kv []any) map[string]any {
	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		var value any
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}
