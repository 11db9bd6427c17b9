package transport

import (
	"sync"
	"sync/atomic"
)

// DefaultPendingDepth bounds buffered items per reservation
const DefaultPendingDepth = 16

// Pending is a bounded FIFO of inbound items waiting for the launched app
type Pending[T any] struct {
	mu      sync.Mutex
	items   []T
	depth   int
	dropped atomic.Uint64
}

// NewPending creates a buffer holding at most depth items
func NewPending[T any](depth int) *Pending[T] {
	if depth <= 0 {
		depth = DefaultPendingDepth
	}
	return &Pending[T]{depth: depth}
}

// Push appends an item; it returns false and counts a drop when full
func (p *Pending[T]) Push(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) >= p.depth {
		p.dropped.Add(1)
		return false
	}
	p.items = append(p.items, item)
	return true
}

// Len returns the number of buffered items
func (p *Pending[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Drain removes and returns every buffered item
func (p *Pending[T]) Drain() []T {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.items
	p.items = nil
	return items
}

// Dropped returns how many items were rejected because the buffer was full
func (p *Pending[T]) Dropped() uint64 {
	return p.dropped.Load()
}
