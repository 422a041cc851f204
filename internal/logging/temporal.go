package logging

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// TemporalAdapter satisfies the Temporal SDK logger interface.
type TemporalAdapter struct {
	s *zap.SugaredLogger
}

var _ log.Logger = (*TemporalAdapter)(nil)

// Temporal returns an adapter for client.Options.Logger.
func (l *Logger) Temporal() *TemporalAdapter {
	return &TemporalAdapter{s: l.zap.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (t *TemporalAdapter) Debug(msg string, keyvals ...interface{}) { t.s.Debugw(msg, keyvals...) }
func (t *TemporalAdapter) Info(msg string, keyvals ...interface{})  { t.s.Infow(msg, keyvals...) }
func (t *TemporalAdapter) Warn(msg string, keyvals ...interface{})  { t.s.Warnw(msg, keyvals...) }
func (t *TemporalAdapter) Error(msg string, keyvals ...interface{}) { t.s.Errorw(msg, keyvals...) }
