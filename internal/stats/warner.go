package stats

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxWarnings is the number of messages emitted per category before
// a Warner goes quiet.
const DefaultMaxWarnings = 20

// Warner is a rate-limited warning sink. Every call is tallied, but only the
// first max calls per category reach the logger.
type Warner struct {
	mu     sync.Mutex
	max    int64
	counts map[string]int64
	logger *zap.Logger
}

// NewWarner creates a warner that logs at most max messages per category.
// A non-positive max falls back to DefaultMaxWarnings.
func NewWarner(logger *zap.Logger, max int) *Warner {
	if max <= 0 {
		max = DefaultMaxWarnings
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warner{
		max:    int64(max),
		counts: make(map[string]int64),
		logger: logger,
	}
}

// SetLogger replaces the underlying logger.
func (w *Warner) SetLogger(l *zap.Logger) {
	w.mu.Lock()
	w.logger = l
	w.mu.Unlock()
}

// Warn records a warning in category and logs it if the category budget
// is not yet spent. It reports whether the message was logged.
func (w *Warner) Warn(category, msg string, fields ...zap.Field) bool {
	w.mu.Lock()
	w.counts[category]++
	n := w.counts[category]
	logger := w.logger
	w.mu.Unlock()

	if n > w.max {
		return false
	}
	logger.Warn(msg, append(fields, zap.String("category", category))...)
	if n == w.max {
		logger.Warn("further warnings suppressed", zap.String("category", category))
	}
	return true
}

// Count returns how many warnings were recorded for category.
func (w *Warner) Count(category string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[category]
}

// Counts returns a snapshot of all warning tallies.
func (w *Warner) Counts() *Counter {
	c := NewCounter()
	w.mu.Lock()
	for k, v := range w.counts {
		c.counts[k] = v
	}
	w.mu.Unlock()
	return c
}
