package policy

import (
	"container/list"
	"sync"
)

// FIFO implements the Policy interface using First In First Out strategy.
// Overwriting a key does not change its position.
type FIFO[K comparable] struct {
	items map[K]*list.Element
	list  *list.List
	mu    sync.Mutex
}

// NewFIFO creates a new FIFO policy
func NewFIFO[K comparable]() *FIFO[K] {
	return &FIFO[K]{
		items: make(map[K]*list.Element),
		list:  list.New(),
	}
}

// OnGet is a no-op for FIFO
func (p *FIFO[K]) OnGet(key K) {}

// OnSet appends key if it is not tracked yet
func (p *FIFO[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.items[key]; exists {
		return
	}
	p.items[key] = p.list.PushBack(key)
}

// OnDelete stops tracking key
func (p *FIFO[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear forgets every key
func (p *FIFO[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.list = list.New()
	p.items = make(map[K]*list.Element)
}

// Evict returns the oldest inserted key
func (p *FIFO[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	element := p.list.Front()
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
func (p *FIFO[K]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Len()
}
