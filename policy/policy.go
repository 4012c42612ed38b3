// Package policy provides eviction policies (LRU, FIFO, LFU) used by a
// size-bounded store to pick which key to drop when it is full.
package policy

import (
	"strings"

	"github.com/gozephyr/kvstore/errors"
)

// Policy ranks keys for eviction. The store owns capacity; a policy only
// tracks keys and answers which one should go next.
//
// Implementations are safe for concurrent use: OnGet may be called by
// several readers at once while the store is under a shared lock.
type Policy[K comparable] interface {
	// OnGet is called when a live key is read
	OnGet(key K)

	// OnSet is called when a key is inserted or overwritten
	OnSet(key K)

	// OnDelete is called when a key leaves the store
	OnDelete(key K)

	// OnClear is called when the store is cleared
	OnClear()

	// Evict removes and returns the next key to be evicted
	Evict() (K, bool)

	// Size returns the number of keys tracked
	Size() int
}

// Kind names an eviction policy
type Kind string

const (
	KindLRU  Kind = "lru"
	KindFIFO Kind = "fifo"
	KindLFU  Kind = "lfu"
)

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case KindLRU, KindFIFO, KindLFU:
		return kind, nil
	case "":
		return KindLRU, nil
	default:
		return "", errors.WrapError("ParseKind", s, errors.ErrInvalidPolicy)
	}
}

// New creates a policy of the given kind
func New[K comparable](kind Kind) (Policy[K], error) {
	switch kind {
	case KindLRU, "":
		return NewLRU[K](), nil
	case KindFIFO:
		return NewFIFO[K](), nil
	case KindLFU:
		return NewLFU[K](), nil
	default:
		return nil, errors.WrapError("New", string(kind), errors.ErrInvalidPolicy)
	}
}
