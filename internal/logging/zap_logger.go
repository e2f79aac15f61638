// Package logging adapts go.uber.org/zap to the sdk/contracts.Logger and
// contracts.Field interfaces, so every daemon logs through one interface
// regardless of backend.
package logging

import (
	"os"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger implements contracts.Logger over a *zap.Logger.
type zapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger builds a console-encoded, ISO8601-timestamped logger at
// InfoLevel, suitable as the default for all three daemons.
func NewZapLogger() contracts.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return &zapLogger{base: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), level: level}
}

func (l *zapLogger) Info(msg string, fields ...contracts.Field)  { l.base.Info(msg, toZap(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...contracts.Field)  { l.base.Warn(msg, toZap(fields)...) }
func (l *zapLogger) Error(msg string, fields ...contracts.Field) { l.base.Error(msg, toZap(fields)...) }
func (l *zapLogger) Debug(msg string, fields ...contracts.Field) { l.base.Debug(msg, toZap(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...contracts.Field) { l.base.Fatal(msg, toZap(fields)...) }

func (l *zapLogger) Field() contracts.Field { return &zapField{} }

func (l *zapLogger) With(fields ...contracts.Field) contracts.Logger {
	return &zapLogger{base: l.base.With(toZap(fields)...), level: l.level}
}

func (l *zapLogger) SetLevel(level contracts.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapField implements contracts.Field by producing a fresh zapField
// holding one zap.Field; fields are collected back out via toZap.
type zapField struct {
	f     zap.Field
	isSet bool
}

func (*zapField) Bool(key string, val bool) contracts.Field {
	return &zapField{f: zap.Bool(key, val), isSet: true}
}
func (*zapField) Int(key string, val int) contracts.Field {
	return &zapField{f: zap.Int(key, val), isSet: true}
}
func (*zapField) Float64(key string, val float64) contracts.Field {
	return &zapField{f: zap.Float64(key, val), isSet: true}
}
func (*zapField) String(key string, val string) contracts.Field {
	return &zapField{f: zap.String(key, val), isSet: true}
}
func (*zapField) Time(key string, val time.Time) contracts.Field {
	return &zapField{f: zap.Time(key, val), isSet: true}
}
func (*zapField) Duration(key string, val time.Duration) contracts.Field {
	return &zapField{f: zap.Duration(key, val), isSet: true}
}
func (*zapField) Int64(key string, val int64) contracts.Field {
	return &zapField{f: zap.Int64(key, val), isSet: true}
}
func (*zapField) Error(key string, val error) contracts.Field {
	return &zapField{f: zap.NamedError(key, val), isSet: true}
}
func (*zapField) Uint64(key string, val uint64) contracts.Field {
	return &zapField{f: zap.Uint64(key, val), isSet: true}
}
func (*zapField) Uint8(key string, val uint8) contracts.Field {
	return &zapField{f: zap.Uint8(key, val), isSet: true}
}

func toZap(fields []contracts.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if zf, ok := f.(*zapField); ok && zf.isSet {
			out = append(out, zf.f)
		}
	}
	return out
}
