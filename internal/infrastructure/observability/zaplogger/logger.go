// Package zaplogger adapts a *zap.Logger to observability.Logger.
package zaplogger

import (
	"github.com/pantrychef/pantry/internal/observability"
	"go.uber.org/zap"
)

type logger struct{ l *zap.Logger }

// New wraps base; fixed fields are attached to every entry.
func New(base *zap.Logger, fixed ...observability.Field) observability.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if len(fixed) > 0 {
		base = base.With(toZapFields(fixed)...)
	}
	return &logger{l: base}
}

func (z *logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return z
	}
	return &logger{l: z.l.With(toZapFields(fields)...)}
}

func (z *logger) Debug(msg string, fields ...observability.Field) {
	z.l.Debug(msg, toZapFields(fields)...)
}
func (z *logger) Info(msg string, fields ...observability.Field) {
	z.l.Info(msg, toZapFields(fields)...)
}
func (z *logger) Warn(msg string, fields ...observability.Field) {
	z.l.Warn(msg, toZapFields(fields)...)
}
func (z *logger) Error(msg string, fields ...observability.Field) {
	z.l.Error(msg, toZapFields(fields)...)
}

func toZapFields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
