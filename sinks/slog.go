package sinks

import (
	"context"
	"log/slog"
)

// SlogSink forwards lines to a slog logger at a fixed level
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink creates a sink logging through logger
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

// Write implements contracts.Sink
func (s *SlogSink) Write(line string) {
	s.logger.Log(context.Background(), s.level, line)
}
