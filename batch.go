package kvstore

import (
	"time"

	"github.com/gozephyr/kvstore/store"
)

// GetMany returns the live values for keys. Missing and expired keys are
// left out of the result. Expired entries seen here are not evicted; a
// later Get or Cleanup reaps them.
func (s *Store[K, V]) GetMany(keys []K) map[K]V {
	result := make(map[K]V, len(keys))

	s.mu.RLock()
	for _, key := range keys {
		if value, state := s.store.Peek(key); state == store.Live {
			s.store.Touch(key)
			result[key] = value
		}
	}
	s.mu.RUnlock()

	for range result {
		s.metrics.RecordHit()
	}
	for i := len(result); i < len(keys); i++ {
		s.metrics.RecordMiss()
	}
	return result
}

// PutMany stores every entry under a single exclusive lock. A non-zero ttl
// applies to every entry as in PutWithTTL, so a negative ttl stores them
// already expired. Zero stores them without expiration.
func (s *Store[K, V]) PutMany(entries map[K]V, ttl time.Duration) {
	s.lock()
	defer s.unlock()

	for key, value := range entries {
		if ttl != 0 {
			s.store.PutWithTTL(key, value, ttl)
		} else {
			s.store.Put(key, value)
		}
		s.metrics.RecordSet()
		s.queue(EventTypePut, key, value)
	}
}

// RemoveMany deletes keys under a single exclusive lock and returns how many
// were present
func (s *Store[K, V]) RemoveMany(keys []K) int {
	s.lock()
	defer s.unlock()

	removed := 0
	for _, key := range keys {
		if s.store.Remove(key) {
			removed++
		}
	}
	return removed
}
