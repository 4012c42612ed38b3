// Package kvstore provides a generic, thread-safe key-value store with
// per-entry time-to-live.
//
// Store wraps the single-threaded store.Store with a reader/writer lock.
// Reads (Get, GetRequired, Contains, Size, Keys, ForEach, Snapshot) share
// the lock; writes (Put, Remove, Clear, Cleanup, Update) take it
// exclusively. Evicting an expired entry is a write: Get detects expiry
// under the shared lock, then re-checks and evicts under the exclusive one.
//
// Values are returned by copy. Event callbacks run after the lock has been
// released.
package kvstore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/metrics"
	"github.com/gozephyr/kvstore/store"
	"github.com/gozephyr/kvstore/ttl"
)

// EventType represents the type of store event
type EventType int

const (
	EventTypePut EventType = iota
	EventTypeRemove
	EventTypeExpiration
	EventTypeEviction
	EventTypeClear
)

// String returns the event name
func (t EventType) String() string {
	switch t {
	case EventTypePut:
		return "put"
	case EventTypeRemove:
		return "remove"
	case EventTypeExpiration:
		return "expiration"
	case EventTypeEviction:
		return "eviction"
	case EventTypeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Event represents a change to the store
type Event[K comparable, V any] struct {
	Type      EventType
	Key       K
	Value     V
	Timestamp time.Time
}

// Callback is a function that handles store events
type Callback[K comparable, V any] func(Event[K, V])

// Store is a thread-safe TTL key-value store
type Store[K comparable, V any] struct {
	mu    sync.RWMutex
	store *store.Store[K, V]
	clock ttl.Clock

	// pending collects events produced under the exclusive lock
	pending []Event[K, V]

	callbacks    []Callback[K, V]
	callbacksMu  sync.RWMutex
	hasCallbacks atomic.Bool

	metrics metrics.Exporter
	janitor *janitor
}

// New creates a new store with the given options
func New[K comparable, V any](opts ...Option) (*Store[K, V], error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Metrics == nil {
		options.Metrics = metrics.NewStoreMetrics()
	}

	inner, err := store.New[K, V](
		store.WithClock(options.Clock),
		store.WithMaxSize(options.MaxSize),
		store.WithPolicy(options.Policy),
	)
	if err != nil {
		return nil, err
	}

	s := &Store[K, V]{
		store:   inner,
		clock:   inner.Clock(),
		metrics: options.Metrics,
	}
	inner.SetRemovalListener(s.onRemoval)

	if options.CleanupInterval > 0 {
		s.janitor = startJanitor(options.CleanupInterval, options.Logger, func() int {
			return s.Cleanup()
		})
	}

	return s, nil
}

// onRemoval runs inside store operations, under the exclusive lock
func (s *Store[K, V]) onRemoval(key K, value V, reason store.RemovalReason) {
	var eventType EventType
	switch reason {
	case store.ReasonExpired:
		s.metrics.RecordExpiration()
		eventType = EventTypeExpiration
	case store.ReasonEvicted:
		s.metrics.RecordEviction()
		eventType = EventTypeEviction
	case store.ReasonCleared:
		eventType = EventTypeClear
	default:
		s.metrics.RecordRemoval()
		eventType = EventTypeRemove
	}
	s.queue(eventType, key, value)
}

func (s *Store[K, V]) queue(eventType EventType, key K, value V) {
	if !s.hasCallbacks.Load() {
		return
	}
	s.pending = append(s.pending, Event[K, V]{
		Type:      eventType,
		Key:       key,
		Value:     value,
		Timestamp: s.clock.Now(),
	})
}

// lock takes the exclusive lock. Pair it with a deferred unlock.
func (s *Store[K, V]) lock() {
	s.mu.Lock()
}

// unlock publishes the size, releases the exclusive lock, then dispatches
// the events queued while it was held. The size is published under the lock
// so concurrent writers cannot leave a stale value behind.
func (s *Store[K, V]) unlock() {
	events := s.pending
	s.pending = nil
	s.metrics.UpdateSize(int64(s.store.Size()))
	s.mu.Unlock()

	s.dispatch(events)
}

func (s *Store[K, V]) dispatch(events []Event[K, V]) {
	if len(events) == 0 {
		return
	}

	s.callbacksMu.RLock()
	callbacks := s.callbacks
	s.callbacksMu.RUnlock()

	for _, event := range events {
		for _, callback := range callbacks {
			callback(event)
		}
	}
}

// OnEvent registers a callback for store events. Callbacks run on the
// goroutine that made the change, after the store lock is released, so
// they may call back into the store.
func (s *Store[K, V]) OnEvent(callback Callback[K, V]) {
	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	s.callbacks = append(s.callbacks, callback)
	s.hasCallbacks.Store(true)
}

// Put stores value under key with no expiration
func (s *Store[K, V]) Put(key K, value V) {
	s.lock()
	defer s.unlock()

	s.store.Put(key, value)
	s.metrics.RecordSet()
	s.queue(EventTypePut, key, value)
}

// PutWithTTL stores value under key, expiring once d has elapsed. A
// negative d stores an entry that is already expired.
func (s *Store[K, V]) PutWithTTL(key K, value V, d time.Duration) {
	s.lock()
	defer s.unlock()

	s.store.PutWithTTL(key, value, d)
	s.metrics.RecordSet()
	s.queue(EventTypePut, key, value)
}

// Get returns the value stored under key if it exists and has not expired
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	value, state := s.store.Peek(key)
	if state == store.Live {
		s.store.Touch(key)
	}
	s.mu.RUnlock()

	switch state {
	case store.Live:
		s.metrics.RecordHit()
		return value, true
	case store.Absent:
		s.metrics.RecordMiss()
		return value, false
	default:
		return s.getExclusive(key)
	}
}

// getExclusive repeats the lookup under the exclusive lock so the expired
// entry can be evicted. The key may have been rewritten since it was seen
// expired, in which case the new value is returned.
func (s *Store[K, V]) getExclusive(key K) (V, bool) {
	s.lock()
	defer s.unlock()

	value, ok := s.store.Get(key)
	if ok {
		s.metrics.RecordHit()
	} else {
		s.metrics.RecordMiss()
	}
	return value, ok
}

// GetRequired is Get for keys that must exist. A missing or expired key
// returns an error wrapping errors.ErrKeyNotFound that carries the key.
func (s *Store[K, V]) GetRequired(key K) (V, error) {
	value, ok := s.Get(key)
	if !ok {
		return value, errors.WrapError("GetRequired", key, errors.ErrKeyNotFound)
	}
	return value, nil
}

// Contains reports whether key holds a live entry. It never evicts.
func (s *Store[K, V]) Contains(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Contains(key)
}

// Remove deletes key and reports whether it was present
func (s *Store[K, V]) Remove(key K) bool {
	s.lock()
	defer s.unlock()
	return s.store.Remove(key)
}

// Update atomically replaces the value under key with fn's result, holding
// the exclusive lock for the whole read-modify-write. fn receives the
// current live value and whether one exists; returning false as the second
// result leaves the store untouched. The new entry keeps the remaining TTL
// of the one it replaces. fn must not call into the store.
func (s *Store[K, V]) Update(key K, fn func(current V, exists bool) (V, bool)) bool {
	s.lock()
	defer s.unlock()

	var next V
	stored := s.store.Update(key, func(current V, exists bool) (V, bool) {
		var keep bool
		next, keep = fn(current, exists)
		return next, keep
	})
	if stored {
		s.metrics.RecordSet()
		s.queue(EventTypePut, key, next)
	}
	return stored
}

// Size returns the number of stored entries, including expired entries not
// yet reaped by Get, Cleanup or the janitor
func (s *Store[K, V]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Size()
}

// Capacity returns the maximum number of entries (0 means unbounded)
func (s *Store[K, V]) Capacity() int {
	return s.store.Capacity()
}

// Clear removes every entry
func (s *Store[K, V]) Clear() {
	s.lock()
	defer s.unlock()
	s.store.Clear()
}

// Cleanup evicts every expired entry and returns how many were removed
func (s *Store[K, V]) Cleanup() int {
	s.lock()
	defer s.unlock()

	removed := s.store.Cleanup()
	s.metrics.RecordCleanup()
	return removed
}

// Keys returns the keys of all live entries
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Keys()
}

// ForEach calls visitor for every live entry while holding the shared lock.
// visitor must not call into the store and should return quickly, since
// writers wait until it is done.
func (s *Store[K, V]) ForEach(visitor func(key K, value V)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.store.ForEach(visitor)
}

// Snapshot returns a copy of all live entries
func (s *Store[K, V]) Snapshot() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[K]V, s.store.Size())
	s.store.ForEach(func(key K, value V) {
		result[key] = value
	})
	return result
}

// Entries returns all live entries with their remaining TTL
func (s *Store[K, V]) Entries() []store.Item[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Entries()
}

// Import stores every item under one exclusive lock
func (s *Store[K, V]) Import(items []store.Item[K, V]) {
	s.lock()
	defer s.unlock()

	s.store.Import(items)
	for _, item := range items {
		s.metrics.RecordSet()
		s.queue(EventTypePut, item.Key, item.Value)
	}
}

// Stats returns a snapshot of the store metrics
func (s *Store[K, V]) Stats() metrics.Snapshot {
	return s.metrics.GetSnapshot()
}

// Close stops the background janitor. The store stays usable; expired
// entries are then only removed by Get or Cleanup. Close is idempotent.
func (s *Store[K, V]) Close() error {
	if s.janitor != nil {
		s.janitor.stop()
	}
	return nil
}
