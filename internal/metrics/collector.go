// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Items processed across all calls (texts embedded, rows written).
	Items int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`
	Items       int64   `json:"items,omitempty"`
}

// Snapshot represents the process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	Extraction    *OperationSnapshot `json:"extraction,omitempty"`
	Embedding     *OperationSnapshot `json:"embedding,omitempty"`
	VectorSearch  *OperationSnapshot `json:"vectorSearch,omitempty"`
	VectorWrite   *OperationSnapshot `json:"vectorWrite,omitempty"`
	IndexSave     *OperationSnapshot `json:"indexSave,omitempty"`
}

// Operation names for the collector.
const (
	OpExtraction   = "extraction"
	OpEmbedding    = "embedding"
	OpVectorSearch = "vector_search"
	OpVectorWrite  = "vector_write"
	OpIndexSave    = "index_save"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe and no-ops on a nil Collector.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.Record(op, duration, 0)
}

// Record records timing and the number of items an operation handled.
func (c *Collector) Record(op string, duration time.Duration, items int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	m.Items += int64(items)

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Start returns a function that records the elapsed time for op when called.
//
//	done := c.Start(metrics.OpIndexSave)
//	defer done(0)
func (c *Collector) Start(op string) func(items int) {
	start := time.Now()
	return func(items int) {
		c.Record(op, time.Since(start), items)
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
		Items:       m.Items,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Extraction:    snapshotOp(c.ops[OpExtraction]),
		Embedding:     snapshotOp(c.ops[OpEmbedding]),
		VectorSearch:  snapshotOp(c.ops[OpVectorSearch]),
		VectorWrite:   snapshotOp(c.ops[OpVectorWrite]),
		IndexSave:     snapshotOp(c.ops[OpIndexSave]),
	}
}
