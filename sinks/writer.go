package sinks

import (
	"io"
	"sync"
)

// WriterSink writes each line followed by a newline to w. Writes are serialized so a sink can
// be shared by concurrent invocations.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write implements contracts.Sink
func (s *WriterSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line+"\n")
}
