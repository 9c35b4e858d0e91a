package contracts

// Sink receives rendered lines from logging-style advice
type Sink interface {
	Write(line string)
}

// SinkFunc is a function adapter for Sink
type SinkFunc func(line string)

// Write implements Sink
func (f SinkFunc) Write(line string) {
	f(line)
}

// NopSink discards every line
var NopSink Sink = SinkFunc(func(string) {})
