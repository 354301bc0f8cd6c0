// Package weldlog provides arcweld's structured logger: a console core plus
// an optional rotating file core, sugared Info/Debug/Warn/Error/Fatal calls.
//
// The teacher logs nothing but fmt.Fprintf(os.Stderr, ...) in main.go. This
// package is lifted instead from ANYCUBIC-3D-Klipper-go's
// common/logger/logger.go: the same zap + lumberjack dual-core shape,
// adapted from a package-global singleton to a constructed *Logger value so
// cmd/arcweld can own its lifetime explicitly (Sync on every exit path,
// per spec §5's "guaranteed to be closed on every exit path").
package weldlog

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zapcore.Level without exposing the zap import to callers
// that only need to pick a verbosity.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Config controls where and how verbosely a Logger writes.
type Config struct {
	Level Level

	// File, when non-empty, adds a lumberjack-rotated file core alongside
	// the console core.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps a *zap.SugaredLogger with the handful of calls arcweld needs.
type Logger struct {
	z *zap.SugaredLogger
}

// New constructs a Logger from cfg. A zero Config logs Info+ to the console
// only.
func New(cfg Config) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:   "message",
		LevelKey:     "level",
		TimeKey:      "time",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	level := zapcore.Level(cfg.Level)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return &Logger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// Sync flushes any buffered log entries; call on every exit path.
func (l *Logger) Sync() {
	if l == nil || l.z == nil {
		return
	}
	_ = l.z.Sync()
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l != nil && l.z != nil {
		l.z.Infof(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l != nil && l.z != nil {
		l.z.Debugf(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l != nil && l.z != nil {
		l.z.Warnf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l != nil && l.z != nil {
		l.z.Errorf(format, args...)
	}
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	if l != nil && l.z != nil {
		l.z.Fatalf(format, args...)
		return
	}
	os.Exit(1)
}
