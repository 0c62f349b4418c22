// Package ringbuf provides a fixed-capacity FIFO buffer used by the
// dashboard server to retain the most recent log entries.
package ringbuf

import "sync"

// DefaultCapacity bounds retention when no capacity is given.
const DefaultCapacity = 1000

// Buffer keeps the last capacity items pushed into it, evicting the oldest
// first. It is safe for concurrent use.
type Buffer[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	size     int
	capacity int
}

// New returns a buffer holding at most capacity items. Non-positive
// capacities fall back to DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends item, evicting the single oldest entry when full. O(1).
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[(b.head+b.size)%b.capacity] = item
	if b.size < b.capacity {
		b.size++
	} else {
		b.head = (b.head + 1) % b.capacity
	}
}

// Snapshot returns the buffered items oldest-first. The returned slice is a
// copy; mutating it does not affect the buffer.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%b.capacity]
	}
	return out
}

// Clear empties the buffer.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.items)
	b.head = 0
	b.size = 0
}

// Len reports how many items are currently buffered.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap reports the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}
