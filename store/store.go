// Package store provides the single-threaded, TTL-aware key-value map that
// the concurrent store wraps.
//
// A Store is not safe for concurrent use. Expired entries are functionally
// absent: Get evicts them lazily, Contains hides them, and Cleanup reaps
// them in bulk. Size reports storage occupancy and therefore still counts
// expired entries that nothing has reaped yet.
package store

import (
	"time"

	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/policy"
	"github.com/gozephyr/kvstore/ttl"
)

// State describes what a lookup found
type State int

const (
	// Absent means no entry is stored for the key
	Absent State = iota
	// Live means the entry exists and has not expired
	Live
	// Expired means the entry exists but has expired and awaits eviction
	Expired
)

// RemovalReason says why an entry left the store
type RemovalReason int

const (
	ReasonRemoved RemovalReason = iota
	ReasonExpired
	ReasonEvicted
	ReasonCleared
)

// String returns the reason name
func (r RemovalReason) String() string {
	switch r {
	case ReasonRemoved:
		return "removed"
	case ReasonExpired:
		return "expired"
	case ReasonEvicted:
		return "evicted"
	case ReasonCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// RemovalListener is called for every entry that leaves the store. It runs
// synchronously inside the store operation and must not call back into it.
type RemovalListener[K comparable, V any] func(key K, value V, reason RemovalReason)

// Item is a live entry exported with its remaining time-to-live
type Item[K comparable, V any] struct {
	Key    K
	Value  V
	TTL    time.Duration
	HasTTL bool
}

// Store is a generic mapping from key to Entry
type Store[K comparable, V any] struct {
	items    map[K]*Entry[V]
	clock    ttl.Clock
	maxSize  int
	policy   policy.Policy[K]
	listener RemovalListener[K, V]
}

// New creates an empty store
func New[K comparable, V any](opts ...Option) (*Store[K, V], error) {
	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, err
	}

	s := &Store[K, V]{
		items:   make(map[K]*Entry[V]),
		clock:   options.Clock,
		maxSize: options.MaxSize,
	}

	if s.maxSize > 0 {
		p, err := policy.New[K](options.Policy)
		if err != nil {
			return nil, err
		}
		s.policy = p
	}

	return s, nil
}

// SetRemovalListener registers fn to be told about removed entries.
// Passing nil unregisters it.
func (s *Store[K, V]) SetRemovalListener(fn RemovalListener[K, V]) {
	s.listener = fn
}

// Clock returns the store's time source
func (s *Store[K, V]) Clock() ttl.Clock {
	return s.clock
}

// Capacity returns the maximum number of entries (0 means unbounded)
func (s *Store[K, V]) Capacity() int {
	return s.maxSize
}

// Put stores value under key with no expiration, replacing any existing entry
func (s *Store[K, V]) Put(key K, value V) {
	s.insert(key, NewEntry(value, s.clock))
}

// PutWithTTL stores value under key, expiring once d has elapsed. The new
// entry replaces any existing one, including its expiration policy.
func (s *Store[K, V]) PutWithTTL(key K, value V, d time.Duration) {
	s.insert(key, NewEntryWithTTL(value, d, s.clock))
}

func (s *Store[K, V]) insert(key K, entry *Entry[V]) {
	if _, exists := s.items[key]; !exists && s.maxSize > 0 && len(s.items) >= s.maxSize {
		s.makeRoom()
	}

	s.items[key] = entry
	if s.policy != nil {
		s.policy.OnSet(key)
	}
}

// makeRoom frees at least one slot, preferring expired entries over live ones
func (s *Store[K, V]) makeRoom() {
	s.Cleanup()

	for len(s.items) >= s.maxSize {
		victim, ok := s.policy.Evict()
		if !ok {
			return
		}
		if entry, exists := s.items[victim]; exists {
			delete(s.items, victim)
			s.notify(victim, entry.value, ReasonEvicted)
		}
	}
}

// Get returns the value stored under key if it exists and has not expired.
// An expired entry is evicted before returning.
func (s *Store[K, V]) Get(key K) (V, bool) {
	var zero V

	entry, exists := s.items[key]
	if !exists {
		return zero, false
	}

	if entry.IsExpiredAt(s.clock.Now()) {
		s.evict(key, entry, ReasonExpired)
		return zero, false
	}

	s.Touch(key)
	return entry.value, true
}

// GetRequired is Get for keys the caller asserts must exist. A missing or
// expired key yields an error wrapping errors.ErrKeyNotFound with the key.
func (s *Store[K, V]) GetRequired(key K) (V, error) {
	value, ok := s.Get(key)
	if !ok {
		return value, errors.WrapError("GetRequired", key, errors.ErrKeyNotFound)
	}
	return value, nil
}

// Peek looks key up without evicting or recording an access
func (s *Store[K, V]) Peek(key K) (V, State) {
	var zero V

	entry, exists := s.items[key]
	if !exists {
		return zero, Absent
	}
	if entry.IsExpiredAt(s.clock.Now()) {
		return zero, Expired
	}
	return entry.value, Live
}

// Touch records a read of key with the eviction policy
func (s *Store[K, V]) Touch(key K) {
	if s.policy != nil {
		s.policy.OnGet(key)
	}
}

// Contains reports whether key holds a live entry. Expired entries are
// reported absent but left in place.
func (s *Store[K, V]) Contains(key K) bool {
	_, state := s.Peek(key)
	return state == Live
}

// Remove deletes key, expired or not, and reports whether it was present
func (s *Store[K, V]) Remove(key K) bool {
	entry, exists := s.items[key]
	if !exists {
		return false
	}
	s.evict(key, entry, ReasonRemoved)
	return true
}

// Update atomically replaces the value under key with fn's result. fn sees
// the current live value; returning false leaves the store untouched. The
// new entry keeps the remaining TTL of the entry it replaces.
func (s *Store[K, V]) Update(key K, fn func(current V, exists bool) (V, bool)) bool {
	now := s.clock.Now()

	var current V
	entry, exists := s.items[key]
	live := exists && !entry.IsExpiredAt(now)
	if exists && !live {
		s.evict(key, entry, ReasonExpired)
	}
	if live {
		current = entry.value
	}

	next, keep := fn(current, live)
	if !keep {
		return false
	}

	if live {
		if remaining, ok := entry.RemainingAt(now); ok {
			s.PutWithTTL(key, next, remaining)
			return true
		}
	}
	s.Put(key, next)
	return true
}

// Size returns the number of stored entries, including expired entries that
// have not been reaped yet
func (s *Store[K, V]) Size() int {
	return len(s.items)
}

// Clear removes every entry
func (s *Store[K, V]) Clear() {
	old := s.items
	s.items = make(map[K]*Entry[V])
	if s.policy != nil {
		s.policy.OnClear()
	}

	if s.listener != nil {
		for key, entry := range old {
			s.listener(key, entry.value, ReasonCleared)
		}
	}
}

// Cleanup evicts every expired entry and returns how many were removed
func (s *Store[K, V]) Cleanup() int {
	now := s.clock.Now()
	removed := 0

	for key, entry := range s.items {
		if entry.IsExpiredAt(now) {
			s.evict(key, entry, ReasonExpired)
			removed++
		}
	}
	return removed
}

// ForEach calls visitor for every live entry. Expired entries are skipped
// and left for Cleanup or a later Get. visitor must not modify the store.
func (s *Store[K, V]) ForEach(visitor func(key K, value V)) {
	now := s.clock.Now()
	for key, entry := range s.items {
		if !entry.IsExpiredAt(now) {
			visitor(key, entry.value)
		}
	}
}

// Keys returns the keys of all live entries
func (s *Store[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.items))
	s.ForEach(func(key K, _ V) {
		keys = append(keys, key)
	})
	return keys
}

// Entries returns every live entry together with its remaining TTL
func (s *Store[K, V]) Entries() []Item[K, V] {
	now := s.clock.Now()
	items := make([]Item[K, V], 0, len(s.items))

	for key, entry := range s.items {
		if entry.IsExpiredAt(now) {
			continue
		}
		remaining, hasTTL := entry.RemainingAt(now)
		items = append(items, Item[K, V]{
			Key:    key,
			Value:  entry.value,
			TTL:    remaining,
			HasTTL: hasTTL,
		})
	}
	return items
}

// Import stores every item, replacing existing keys
func (s *Store[K, V]) Import(items []Item[K, V]) {
	for _, item := range items {
		if item.HasTTL {
			s.PutWithTTL(item.Key, item.Value, item.TTL)
		} else {
			s.Put(item.Key, item.Value)
		}
	}
}

func (s *Store[K, V]) evict(key K, entry *Entry[V], reason RemovalReason) {
	delete(s.items, key)
	if s.policy != nil {
		s.policy.OnDelete(key)
	}
	s.notify(key, entry.value, reason)
}

func (s *Store[K, V]) notify(key K, value V, reason RemovalReason) {
	if s.listener != nil {
		s.listener(key, value, reason)
	}
}
