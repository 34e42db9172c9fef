package logsvc

import (
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
)

// ZapLogger logs locally only. Used by the admin CLI & tests.
type ZapLogger struct {
	std *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZap(std *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{std: std}
}

// NewNop discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{std: zap.NewNop().Sugar()}
}

func (l ZapLogger) fields(args []interface{}) []interface{} {
	return RollbarLogger{}.fields(args)
}

func (l ZapLogger) Debug(msg string, args ...interface{}) { l.std.Debugw(msg, l.fields(args)...) }
func (l ZapLogger) Info(msg string, args ...interface{})  { l.std.Infow(msg, l.fields(args)...) }
func (l ZapLogger) Warn(msg string, args ...interface{})  { l.std.Warnw(msg, l.fields(args)...) }
func (l ZapLogger) Error(msg string, args ...interface{}) { l.std.Errorw(msg, l.fields(args)...) }
func (l ZapLogger) Fatal(msg string, args ...interface{}) { l.std.Fatalw(msg, l.fields(args)...) }
