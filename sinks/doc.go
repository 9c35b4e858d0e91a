// Package sinks provides contracts.Sink implementations for logging-style advice.
//
// Available sinks:
//   - WriterSink: Writes one line per call to any io.Writer (console, file)
//   - SlogSink: Forwards lines to a log/slog logger
//   - ZapSink: Forwards lines to a zap logger
//   - AMQPSink: Publishes each line as a message to a RabbitMQ exchange
//   - MemorySink: Records lines in memory, mostly for tests
//   - MultiSink: Fans a line out to several sinks
package sinks
