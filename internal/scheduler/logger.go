package scheduler

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// gocronLogger routes gocron's key/value logs to zap.
type gocronLogger struct {
	logger *zap.SugaredLogger
}

//nolint:ireturn // gocron.WithLogger takes its own interface
func newGocronLogger(logger *zap.Logger) gocron.Logger {
	return &gocronLogger{logger: logger.Named("gocron").Sugar()}
}

func (l *gocronLogger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

func (l *gocronLogger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

func (l *gocronLogger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

func (l *gocronLogger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}
