package sinks

import (
	"sync"

	"github.com/glimte/weave-go/contracts"
)

// MemorySink records every line it receives
type MemorySink struct {
	mu    sync.Mutex
	lines []string
}

// NewMemorySink creates an empty memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements contracts.Sink
func (s *MemorySink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// Lines returns a copy of the recorded lines
func (s *MemorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Reset discards the recorded lines
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// MultiSink writes every line to each of its sinks in order
type MultiSink []contracts.Sink

// Write implements contracts.Sink
func (m MultiSink) Write(line string) {
	for _, s := range m {
		if s != nil {
			s.Write(line)
		}
	}
}
