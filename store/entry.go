package store

import (
	"time"

	"github.com/gozephyr/kvstore/ttl"
)

// Entry wraps a stored value with its creation time and optional TTL.
// An entry is never mutated after construction; overwriting a key replaces
// the whole entry.
type Entry[V any] struct {
	value     V
	createdAt time.Time
	ttl       time.Duration
	hasTTL    bool
	clock     ttl.Clock
}

// NewEntry creates an entry that never expires
func NewEntry[V any](value V, clock ttl.Clock) *Entry[V] {
	if clock == nil {
		clock = ttl.Default
	}
	return &Entry[V]{
		value:     value,
		createdAt: clock.Now(),
		clock:     clock,
	}
}

// NewEntryWithTTL creates an entry that expires once ttl has elapsed.
// A negative ttl yields an entry that is already expired.
func NewEntryWithTTL[V any](value V, d time.Duration, clock ttl.Clock) *Entry[V] {
	e := NewEntry(value, clock)
	e.ttl = d
	e.hasTTL = true
	return e
}

// Value returns the stored value
func (e *Entry[V]) Value() V {
	return e.value
}

// CreatedAt returns the clock reading taken at construction
func (e *Entry[V]) CreatedAt() time.Time {
	return e.createdAt
}

// TTL returns the entry's time-to-live, if it has one
func (e *Entry[V]) TTL() (time.Duration, bool) {
	return e.ttl, e.hasTTL
}

// IsExpired reports whether the entry has expired now
func (e *Entry[V]) IsExpired() bool {
	return e.IsExpiredAt(e.clock.Now())
}

// IsExpiredAt reports whether the entry has expired at now
func (e *Entry[V]) IsExpiredAt(now time.Time) bool {
	if !e.hasTTL {
		return false
	}
	return ttl.Expired(e.createdAt, e.ttl, now)
}

// Remaining returns the time left before expiry. The bool is false for
// entries without a TTL.
func (e *Entry[V]) Remaining() (time.Duration, bool) {
	return e.RemainingAt(e.clock.Now())
}

// RemainingAt is Remaining evaluated at now
func (e *Entry[V]) RemainingAt(now time.Time) (time.Duration, bool) {
	if !e.hasTTL {
		return 0, false
	}
	return ttl.Remaining(e.createdAt, e.ttl, now), true
}
