package policy

import (
	"container/list"
	"sync"
)

// LRU implements the Policy interface using Least Recently Used strategy
type LRU[K comparable] struct {
	items map[K]*list.Element
	list  *list.List
	mu    sync.Mutex
}

// NewLRU creates a new LRU policy
func NewLRU[K comparable]() *LRU[K] {
	return &LRU[K]{
		items: make(map[K]*list.Element),
		list:  list.New(),
	}
}

// OnGet moves key to the front of the recency list
func (p *LRU[K]) OnGet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
	}
}

// OnSet inserts key at the front, or moves it there if already tracked
func (p *LRU[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
		return
	}
	p.items[key] = p.list.PushFront(key)
}

// OnDelete stops tracking key
func (p *LRU[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear forgets every key
func (p *LRU[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.list = list.New()
	p.items = make(map[K]*list.Element)
}

// Evict returns the least recently used key
func (p *LRU[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	element := p.list.Back()
	if element == nil {
		var zero K
		return zero, false
	}
	key := element.Value.(K)
	p.list.Remove(element)
	delete(p.items, key)
	return key, true
}

// Size returns the number of keys tracked
func (p *LRU[K]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Len()
}
