// Package performance provides lightweight per-operation timing for the
// request handlers and background worker.
package performance

import (
	"sync"
	"time"

	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
)

// Tracker aggregates operation timings and flags slow operations.
type Tracker struct {
	mu            sync.RWMutex
	stats         map[string]*OperationStats
	slowThreshold time.Duration
	logger        *logging.ChanneledLogger
}

// OperationStats holds aggregate timing for one named operation.
type OperationStats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"totalDuration"`
	MaxDuration   time.Duration `json:"maxDuration"`
	Failures      int64         `json:"failures"`
}

// Marker tracks a single in-flight operation.
type Marker struct {
	Operation string
	StartTime time.Time
	Success   bool

	tracker *Tracker
}

// NewTracker creates a performance tracker. A zero slowThreshold disables
// slow-operation logging.
func NewTracker(slowThreshold time.Duration, logger *logging.ChanneledLogger) *Tracker {
	return &Tracker{
		stats:         make(map[string]*OperationStats),
		slowThreshold: slowThreshold,
		logger:        logger,
	}
}

// StartOperation begins timing a named operation.
func (t *Tracker) StartOperation(operation string) *Marker {
	return &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Success:   true,
		tracker:   t,
	}
}

// Complete records the marker's duration into the tracker.
func (m *Marker) Complete() {
	duration := time.Since(m.StartTime)
	t := m.tracker

	t.mu.Lock()
	stats, exists := t.stats[m.Operation]
	if !exists {
		stats = &OperationStats{}
		t.stats[m.Operation] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
	if duration > stats.MaxDuration {
		stats.MaxDuration = duration
	}
	if !m.Success {
		stats.Failures++
	}
	t.mu.Unlock()

	if t.slowThreshold > 0 && duration > t.slowThreshold && t.logger != nil {
		t.logger.System().Warn("Slow operation",
			"operation", m.Operation,
			"duration", duration,
			"success", m.Success,
		)
	}
}

// SetError marks the operation as failed.
func (m *Marker) SetError() {
	m.Success = false
}

// Snapshot returns a copy of the aggregated stats keyed by operation name.
func (t *Tracker) Snapshot() map[string]OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]OperationStats, len(t.stats))
	for op, stats := range t.stats {
		out[op] = *stats
	}
	return out
}
