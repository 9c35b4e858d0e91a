package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/sinks"
)

// OpenSink creates the configured sink. The returned close function releases broker
// connections and flushes buffered loggers; it is never nil.
func (c *Config) OpenSink(logger *slog.Logger) (contracts.Sink, func() error, error) {
	nop := func() error { return nil }

	switch c.Sink.Kind {
	case "", "stdout":
		return sinks.NewWriterSink(os.Stdout), nop, nil
	case "stderr":
		return sinks.NewWriterSink(os.Stderr), nop, nil
	case "slog":
		return sinks.NewSlogSink(logger, slog.LevelInfo), nop, nil
	case "zap":
		zl, err := zap.NewProduction()
		if err != nil {
			return nil, nop, fmt.Errorf("failed to create zap logger: %w", err)
		}
		return sinks.NewZapSink(zl, zapcore.InfoLevel), func() error {
			// stdout cannot always be synced
			_ = zl.Sync()
			return nil
		}, nil
	case "amqp":
		opts := []sinks.AMQPSinkOption{sinks.WithSinkLogger(logger)}
		if c.Sink.RoutingKey != "" {
			opts = append(opts, sinks.WithRoutingKey(c.Sink.RoutingKey))
		}
		sink, err := sinks.DialAMQPSink(c.Sink.URL, c.Sink.Exchange, opts...)
		if err != nil {
			return nil, nop, fmt.Errorf("failed to open amqp sink: %w", err)
		}
		return sink, sink.Close, nil
	default:
		return nil, nop, fmt.Errorf("%w: %s", ErrInvalidSink, c.Sink.Kind)
	}
}

// WriterSink returns a sink over w when the configured kind writes to the console, so callers
// can redirect console output
func (c *Config) WriterSink(w io.Writer) (contracts.Sink, bool) {
	switch c.Sink.Kind {
	case "", "stdout", "stderr":
		return sinks.NewWriterSink(w), true
	default:
		return nil, false
	}
}
