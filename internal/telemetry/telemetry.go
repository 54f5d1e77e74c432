// Package telemetry wires structured logging and Prometheus metrics for
// rejection taxonomy, decode failures, and periodic summary lines.
package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// NewLogger builds a production zap.Logger, or a development logger with
// human-readable console output when dev is true.
func NewLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Summary accumulates counters between periodic emission ticks. Incr is
// called from the critical worker while Run emits from its own goroutine,
// so the counter map is mutex-guarded.
type Summary struct {
	log     *zap.Logger
	started time.Time

	mu       sync.Mutex
	counters map[string]uint64
}

// NewSummary constructs a Summary that logs through log.
func NewSummary(log *zap.Logger) *Summary {
	return &Summary{log: log, started: time.Now(), counters: make(map[string]uint64)}
}

// Incr bumps a named counter (for example tx_update, alt_miss, or
// lifecycle_<state>).
func (s *Summary) Incr(name string) {
	s.mu.Lock()
	s.counters[name]++
	s.mu.Unlock()
}

// Add bumps a named counter by n.
func (s *Summary) Add(name string, n uint64) {
	s.mu.Lock()
	s.counters[name] += n
	s.mu.Unlock()
}

// Emit logs the uptime and the current counters as a single structured
// line and resets them. The line carries no latency percentiles and no
// rejection reasons; rejections are counted in Metrics.Rejections.
func (s *Summary) Emit() {
	s.mu.Lock()
	counters := s.counters
	s.counters = make(map[string]uint64)
	s.mu.Unlock()

	fields := make([]zap.Field, 0, len(counters)+1)
	fields = append(fields, zap.Duration("uptime", time.Since(s.started)))
	for name, count := range counters {
		fields = append(fields, zap.Uint64(name, count))
	}
	s.log.Info("summary", fields...)
}

// Run emits a summary line on every tick until stop is closed.
func (s *Summary) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Emit()
		case <-stop:
			return
		}
	}
}
