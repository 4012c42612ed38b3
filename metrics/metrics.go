// Package metrics provides functionality for collecting and reporting store metrics.
package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot is a copy of the counters at one point in time
type Snapshot struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Removals    int64
	Evictions   int64
	Expirations int64
	Size        int64
	LastCleanup time.Time
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StoreMetrics is the in-process exporter backed by atomic counters
type StoreMetrics struct {
	Hits        atomic.Int64
	Misses      atomic.Int64
	Sets        atomic.Int64
	Removals    atomic.Int64
	Evictions   atomic.Int64
	Expirations atomic.Int64
	Size        atomic.Int64
	LastCleanup atomic.Value // time.Time
}

// NewStoreMetrics creates a new StoreMetrics instance
func NewStoreMetrics() *StoreMetrics {
	m := &StoreMetrics{}
	m.LastCleanup.Store(time.Time{})
	return m
}

// RecordHit records a successful lookup
func (m *StoreMetrics) RecordHit() {
	m.Hits.Add(1)
}

// RecordMiss records a failed lookup
func (m *StoreMetrics) RecordMiss() {
	m.Misses.Add(1)
}

// RecordSet records a write
func (m *StoreMetrics) RecordSet() {
	m.Sets.Add(1)
}

// RecordRemoval records an explicit removal
func (m *StoreMetrics) RecordRemoval() {
	m.Removals.Add(1)
}

// RecordEviction records a capacity eviction
func (m *StoreMetrics) RecordEviction() {
	m.Evictions.Add(1)
}

// RecordExpiration records an expired entry being reaped
func (m *StoreMetrics) RecordExpiration() {
	m.Expirations.Add(1)
}

// RecordCleanup records a completed cleanup pass
func (m *StoreMetrics) RecordCleanup() {
	m.LastCleanup.Store(time.Now())
}

// UpdateSize updates the current number of stored entries
func (m *StoreMetrics) UpdateSize(size int64) {
	m.Size.Store(size)
}

// GetSnapshot returns a copy of the current counters
func (m *StoreMetrics) GetSnapshot() Snapshot {
	return Snapshot{
		Hits:        m.Hits.Load(),
		Misses:      m.Misses.Load(),
		Sets:        m.Sets.Load(),
		Removals:    m.Removals.Load(),
		Evictions:   m.Evictions.Load(),
		Expirations: m.Expirations.Load(),
		Size:        m.Size.Load(),
		LastCleanup: m.LastCleanup.Load().(time.Time),
	}
}

// Reset resets all counters to zero
func (m *StoreMetrics) Reset() {
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Sets.Store(0)
	m.Removals.Store(0)
	m.Evictions.Store(0)
	m.Expirations.Store(0)
	m.Size.Store(0)
	m.LastCleanup.Store(time.Time{})
}
