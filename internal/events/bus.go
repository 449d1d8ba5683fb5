// Package events provides a queue that many goroutines emit into and a
// single goroutine drains once per tick.
package events

import "sync"

// Bus collects events of one type until they are drained
type Bus[T any] struct {
	mu     sync.Mutex
	events []T
}

// NewBus creates an empty Bus
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Emit queues an event. Safe for concurrent use.
func (b *Bus[T]) Emit(event T) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

// Drain returns all queued events in emission order and empties the bus
func (b *Bus[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Len returns the number of queued events
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
