package store

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/gozephyr/kvstore/errors"
	"github.com/gozephyr/kvstore/policy"
	"github.com/gozephyr/kvstore/ttl"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*Store[string, string], *ttl.ManualClock) {
	t.Helper()
	clock := ttl.NewManualClock(epoch)
	s, err := New[string, string](append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return s, clock
}

type removal struct {
	key    string
	value  string
	reason RemovalReason
}

func recordRemovals(s *Store[string, string]) *[]removal {
	var removed []removal
	s.SetRemovalListener(func(key, value string, reason RemovalReason) {
		removed = append(removed, removal{key, value, reason})
	})
	return &removed
}

func TestStoreBasicOperations(t *testing.T) {
	s, _ := newTestStore(t)

	s.Put("a", "1")
	value, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", value)

	require.True(t, s.Remove("a"))
	_, ok = s.Get("a")
	require.False(t, ok)
	require.False(t, s.Remove("a"))
}

func TestStoreGetRequired(t *testing.T) {
	s, clock := newTestStore(t)

	s.Put("present", "value")
	value, err := s.GetRequired("present")
	require.NoError(t, err)
	require.Equal(t, "value", value)

	_, err = s.GetRequired("missing")
	require.Error(t, err)
	require.True(t, errors.IsKeyNotFound(err))
	se := errors.GetStoreError(err)
	require.NotNil(t, se)
	require.Equal(t, "missing", se.Key)

	s.PutWithTTL("short", "value", time.Second)
	clock.Advance(time.Second)
	_, err = s.GetRequired("short")
	require.True(t, errors.IsKeyNotFound(err))
}

func TestStoreLazyExpiration(t *testing.T) {
	s, clock := newTestStore(t)
	removed := recordRemovals(s)

	s.PutWithTTL("session", "token123", time.Second)
	value, ok := s.Get("session")
	require.True(t, ok)
	require.Equal(t, "token123", value)

	clock.Advance(1500 * time.Millisecond)
	require.Equal(t, 1, s.Size())

	_, ok = s.Get("session")
	require.False(t, ok)
	require.Equal(t, 0, s.Size())

	// A second read is just a miss
	_, ok = s.Get("session")
	require.False(t, ok)

	require.Equal(t, []removal{{"session", "token123", ReasonExpired}}, *removed)
}

func TestStoreTTLBoundary(t *testing.T) {
	s, clock := newTestStore(t)

	s.PutWithTTL("key", "value", time.Second)
	clock.Advance(time.Second - time.Nanosecond)
	require.True(t, s.Contains("key"))

	clock.Advance(time.Nanosecond)
	require.False(t, s.Contains("key"))
}

func TestStoreNoTTLIsImmortal(t *testing.T) {
	s, clock := newTestStore(t)

	s.Put("key", "value")
	clock.Advance(10 * 365 * 24 * time.Hour)
	require.Equal(t, 0, s.Cleanup())

	value, ok := s.Get("key")
	require.True(t, ok)
	require.Equal(t, "value", value)
}

func TestStoreOverwriteResetsTTL(t *testing.T) {
	s, clock := newTestStore(t)

	s.PutWithTTL("key", "v1", time.Second)
	s.Put("key", "v2")
	clock.Advance(2 * time.Second)

	value, ok := s.Get("key")
	require.True(t, ok)
	require.Equal(t, "v2", value)

	t.Run("Overwrite restarts the clock", func(t *testing.T) {
		s.PutWithTTL("restart", "v1", 2*time.Second)
		clock.Advance(1500 * time.Millisecond)
		s.PutWithTTL("restart", "v2", 2*time.Second)
		clock.Advance(1500 * time.Millisecond)
		value, ok := s.Get("restart")
		require.True(t, ok)
		require.Equal(t, "v2", value)
	})
}

func TestStoreContainsMatchesGet(t *testing.T) {
	s, clock := newTestStore(t)

	s.Put("forever", "value")
	s.PutWithTTL("short", "value", time.Second)
	s.PutWithTTL("long", "value", time.Minute)

	keys := []string{"forever", "short", "long", "missing"}
	for _, step := range []time.Duration{0, 500 * time.Millisecond, time.Second, time.Hour} {
		clock.Advance(step)
		for _, key := range keys {
			contains := s.Contains(key)
			_, ok := s.Get(key)
			require.Equal(t, ok, contains, "key %s after %v", key, step)
		}
	}
}

func TestStoreContainsDoesNotEvict(t *testing.T) {
	s, clock := newTestStore(t)

	s.PutWithTTL("key", "value", time.Second)
	clock.Advance(time.Second)

	require.False(t, s.Contains("key"))
	require.Equal(t, 1, s.Size())
}

func TestStoreCleanup(t *testing.T) {
	s, clock := newTestStore(t)

	s.PutWithTTL("a", "1", time.Second)
	s.PutWithTTL("b", "2", time.Second)
	s.Put("c", "3")
	clock.Advance(2 * time.Second)

	require.Equal(t, 3, s.Size())
	require.Equal(t, 2, s.Cleanup())
	require.Equal(t, 1, s.Size())
	require.Equal(t, 0, s.Cleanup())
}

func TestStoreClear(t *testing.T) {
	s, _ := newTestStore(t)
	removed := recordRemovals(s)

	s.Put("a", "1")
	s.Put("b", "2")
	s.Clear()

	require.Equal(t, 0, s.Size())
	require.Len(t, *removed, 2)
	for _, r := range *removed {
		require.Equal(t, ReasonCleared, r.reason)
	}
}

func TestStoreForEachSkipsExpired(t *testing.T) {
	s, clock := newTestStore(t)

	s.Put("live", "1")
	s.PutWithTTL("dead", "2", time.Second)
	clock.Advance(time.Second)

	seen := map[string]string{}
	s.ForEach(func(key, value string) {
		seen[key] = value
	})
	require.Equal(t, map[string]string{"live": "1"}, seen)

	// Skipped, not evicted
	require.Equal(t, 2, s.Size())
	require.Equal(t, []string{"live"}, s.Keys())
}

func TestStorePeek(t *testing.T) {
	s, clock := newTestStore(t)

	_, state := s.Peek("missing")
	require.Equal(t, Absent, state)

	s.PutWithTTL("key", "value", time.Second)
	value, state := s.Peek("key")
	require.Equal(t, Live, state)
	require.Equal(t, "value", value)

	clock.Advance(time.Second)
	value, state = s.Peek("key")
	require.Equal(t, Expired, state)
	require.Empty(t, value)
	require.Equal(t, 1, s.Size())
}

func TestStoreUpdate(t *testing.T) {
	s, clock := newTestStore(t)
	incr := func(current string, exists bool) (string, bool) {
		n := 0
		if exists {
			_, _ = fmt.Sscanf(current, "%d", &n)
		}
		return fmt.Sprint(n + 1), true
	}

	require.True(t, s.Update("counter", incr))
	require.True(t, s.Update("counter", incr))
	value, _ := s.Get("counter")
	require.Equal(t, "2", value)

	t.Run("Declined update leaves the store untouched", func(t *testing.T) {
		require.False(t, s.Update("counter", func(string, bool) (string, bool) { return "x", false }))
		value, _ := s.Get("counter")
		require.Equal(t, "2", value)
		require.False(t, s.Update("absent", func(string, bool) (string, bool) { return "x", false }))
		require.False(t, s.Contains("absent"))
	})

	t.Run("Update keeps the remaining TTL", func(t *testing.T) {
		s.PutWithTTL("ttl", "1", 10*time.Second)
		clock.Advance(4 * time.Second)
		require.True(t, s.Update("ttl", incr))

		clock.Advance(5 * time.Second)
		value, ok := s.Get("ttl")
		require.True(t, ok)
		require.Equal(t, "2", value)

		clock.Advance(time.Second)
		_, ok = s.Get("ttl")
		require.False(t, ok)
	})

	t.Run("Expired value is not seen", func(t *testing.T) {
		s.PutWithTTL("stale", "41", time.Second)
		clock.Advance(time.Second)
		require.True(t, s.Update("stale", incr))
		value, _ := s.Get("stale")
		require.Equal(t, "1", value)

		// Fresh entry has no TTL
		clock.Advance(time.Hour)
		require.True(t, s.Contains("stale"))
	})
}

func TestStoreEntriesAndImport(t *testing.T) {
	s, clock := newTestStore(t)

	s.Put("forever", "1")
	s.PutWithTTL("ttl", "2", 10*time.Second)
	s.PutWithTTL("dead", "3", time.Second)
	clock.Advance(3 * time.Second)

	items := s.Entries()
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	require.Equal(t, []Item[string, string]{
		{Key: "forever", Value: "1"},
		{Key: "ttl", Value: "2", TTL: 7 * time.Second, HasTTL: true},
	}, items)

	other, otherClock := newTestStore(t)
	other.Import(items)
	require.Equal(t, 2, other.Size())

	otherClock.Advance(7 * time.Second)
	require.False(t, other.Contains("ttl"))
	require.True(t, other.Contains("forever"))
}

func TestStoreOptions(t *testing.T) {
	_, err := New[string, string](WithMaxSize(-1))
	require.ErrorIs(t, err, errors.ErrInvalidSize)

	_, err = New[string, string](WithPolicy("mru"))
	require.ErrorIs(t, err, errors.ErrInvalidPolicy)

	s, err := New[string, string]()
	require.NoError(t, err)
	require.Equal(t, 0, s.Capacity())
	require.Equal(t, ttl.Default, s.Clock())
}

func TestStoreCapacity(t *testing.T) {
	t.Run("LRU evicts least recently used", func(t *testing.T) {
		s, _ := newTestStore(t, WithMaxSize(2))
		removed := recordRemovals(s)

		s.Put("a", "1")
		s.Put("b", "2")
		_, _ = s.Get("a")
		s.Put("c", "3")

		require.Equal(t, 2, s.Size())
		require.True(t, s.Contains("a"))
		require.False(t, s.Contains("b"))
		require.Equal(t, []removal{{"b", "2", ReasonEvicted}}, *removed)
	})

	t.Run("FIFO evicts oldest", func(t *testing.T) {
		s, _ := newTestStore(t, WithMaxSize(2), WithPolicy(policy.KindFIFO))
		s.Put("a", "1")
		s.Put("b", "2")
		_, _ = s.Get("a")
		s.Put("c", "3")
		require.False(t, s.Contains("a"))
		require.True(t, s.Contains("b"))
	})

	t.Run("Overwrite does not evict", func(t *testing.T) {
		s, _ := newTestStore(t, WithMaxSize(2))
		s.Put("a", "1")
		s.Put("b", "2")
		s.Put("a", "3")
		require.Equal(t, 2, s.Size())
		require.True(t, s.Contains("b"))
	})

	t.Run("Expired entries are reaped before live ones", func(t *testing.T) {
		s, clock := newTestStore(t, WithMaxSize(2))
		removed := recordRemovals(s)

		s.Put("keep", "1")
		s.PutWithTTL("stale", "2", time.Second)
		clock.Advance(time.Second)
		s.Put("new", "3")

		require.True(t, s.Contains("keep"))
		require.True(t, s.Contains("new"))
		require.Equal(t, []removal{{"stale", "2", ReasonExpired}}, *removed)
	})
}

func TestRemovalReasonString(t *testing.T) {
	require.Equal(t, "removed", ReasonRemoved.String())
	require.Equal(t, "expired", ReasonExpired.String())
	require.Equal(t, "evicted", ReasonEvicted.String())
	require.Equal(t, "cleared", ReasonCleared.String())
	require.Equal(t, "unknown", RemovalReason(99).String())
}
