// Package hooks provides production-ready Hook, Logger, and metrics
// implementations for the transform engine.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vistaforge/renderpress/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each operation a task runs.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeOp(_ context.Context, taskID, opName string, f *core.Frame) {
	h.logger.Debug("executor.op.start",
		"task", taskID,
		"op", opName,
		"width", f.Meta.Width,
		"height", f.Meta.Height,
	)
}

func (h *LoggingHook) AfterOp(_ context.Context, taskID, opName string, f *core.Frame, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("executor.op.error",
			"task", taskID,
			"op", opName,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	out := "nil"
	if f != nil {
		out = fmt.Sprintf("%dx%d", f.Meta.Width, f.Meta.Height)
	}
	h.logger.Debug("executor.op.done",
		"task", taskID,
		"op", opName,
		"duration_ms", d.Milliseconds(),
		"output", out,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates run metrics; safe for concurrent use from the
// worker pool.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsMs map[string]int64 // cumulative ms per operation kind
	opCalls       map[string]int64
	opErrors      map[string]int64
	taskOutcomes  map[core.TaskState]int64

	totalThroughputB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsMs: make(map[string]int64),
		opCalls:       make(map[string]int64),
		opErrors:      make(map[string]int64),
		taskOutcomes:  make(map[core.TaskState]int64),
	}
}

func (m *InMemoryMetrics) RecordOpDuration(opName string, d time.Duration) {
	m.mu.Lock()
	m.opDurationsMs[opName] += d.Milliseconds()
	m.opCalls[opName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordTaskOutcome(state core.TaskState) {
	m.mu.Lock()
	m.taskOutcomes[state]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordError(opName string, _ string) {
	m.mu.Lock()
	m.opErrors[opName]++
	m.mu.Unlock()
}

// Snapshot returns an immutable copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsMs:    make(map[string]int64, len(m.opDurationsMs)),
		OpCalls:          make(map[string]int64, len(m.opCalls)),
		OpErrors:         make(map[string]int64, len(m.opErrors)),
		TaskOutcomes:     make(map[core.TaskState]int64, len(m.taskOutcomes)),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
	}
	for k, v := range m.opDurationsMs {
		snap.OpDurationsMs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for k, v := range m.opErrors {
		snap.OpErrors[k] = v
	}
	for k, v := range m.taskOutcomes {
		snap.TaskOutcomes[k] = v
	}
	return snap
}

// MetricsSnapshot is a point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsMs    map[string]int64
	OpCalls          map[string]int64
	OpErrors         map[string]int64
	TaskOutcomes     map[core.TaskState]int64
	TotalThroughputB int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds operation events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeOp(_ context.Context, _, _ string, _ *core.Frame) {}

func (h *MetricsHook) AfterOp(_ context.Context, _, opName string, _ *core.Frame, d time.Duration, err error) {
	h.collector.RecordOpDuration(opName, d)
	if err != nil {
		h.collector.RecordError(opName, "executor")
	}
}

// compile-time interface checks
var (
	_ core.Logger           = (*SlogLogger)(nil)
	_ core.Hook             = (*LoggingHook)(nil)
	_ core.Hook             = (*MetricsHook)(nil)
	_ core.MetricsCollector = (*InMemoryMetrics)(nil)
)
