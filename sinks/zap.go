package sinks

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink forwards lines to a zap logger at a fixed level
type ZapSink struct {
	logger *zap.Logger
	level  zapcore.Level
}

// NewZapSink creates a sink logging through logger; a nil logger discards lines
func NewZapSink(logger *zap.Logger, level zapcore.Level) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger, level: level}
}

// Write implements contracts.Sink
func (s *ZapSink) Write(line string) {
	if ce := s.logger.Check(s.level, line); ce != nil {
		ce.Write()
	}
}
