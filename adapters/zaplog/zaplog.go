// Package zaplog adapts a zap sugared logger to the presence.Logger
// interface so services already running zap can inject it directly.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/publika/go-presence"
)

type Logger struct {
	sugar *zap.SugaredLogger
}

var _ presence.Logger = (*Logger)(nil)

// New wraps a sugared logger. A nil argument falls back to zap's no-op
// logger so the adapter is always safe to call.
func New(sugar *zap.SugaredLogger) *Logger {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Logger{sugar: sugar}
}

func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}
