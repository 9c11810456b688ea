package event

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// Sink receives events in the order they are emitted. Implementations
// must be safe for concurrent use: dispatcher entry points and the
// heartbeat ticker emit from different goroutines.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Event)

// Emit calls f(e)
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Multi fans one event out to several sinks in order
type Multi []Sink

// Emit delivers e to every sink in order
func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Console writes events as JSON lines, one per event. Writes are
// serialized under a mutex so concurrent emitters never interleave
// partial lines.
type Console struct {
	w      io.Writer
	logger *slog.Logger
	mu     sync.Mutex
}

// NewConsole creates a console sink writing to w
func NewConsole(w io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default().With("component", "console-sink")
	}
	return &Console{w: w, logger: logger}
}

// Emit writes e as one JSON line
func (c *Console) Emit(e Event) {
	line, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("Failed to encode event", "type", e.Type, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		c.logger.Error("Failed to write event", "type", e.Type, "error", err)
	}
}
