package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moffa90/go-epdble/link"
)

// linkLogger adapts a zap SugaredLogger to link.Logger.
type linkLogger struct {
	s *zap.SugaredLogger
}

var _ link.Logger = linkLogger{}

func (l linkLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l linkLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l linkLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l linkLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// newLogger builds a console logger on stderr. Debug lowers the level and
// adds caller information.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		cfg.DisableCaller = true
	}
	return cfg.Build()
}
