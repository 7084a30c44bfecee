// Package progress is the callback sink used by discovery and the
// transformation pipeline to report incremental progress.
//
// Progress is advisory: under parallel discovery, completions may report
// out-of-order percentages. Consumers must not treat percent as authoritative.
package progress

import (
	"log/slog"
	"sync"
)

// Func receives a progress update. percent is in [0,100].
type Func func(message string, percent float64)

// Sink wraps an optional callback. When no callback is registered, updates
// fall back to the logger so long operations stay observable. Set and Update
// are safe to call concurrently; parallel workers share one sink.
type Sink struct {
	log *slog.Logger

	mu sync.Mutex
	fn Func
}

func NewSink(log *slog.Logger, fn Func) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{log: log, fn: fn}
}

// Set replaces the callback. A nil fn restores the logging fallback.
func (s *Sink) Set(fn Func) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *Sink) Update(message string, percent float64) {
	if s == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(message, percent)
		return
	}
	s.log.Info("progress", "percent", percent, "message", message)
}
