package live

import (
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// Broker fans out values to all subscribers. Slow subscribers have values
// dropped rather than blocking the publisher.
type Broker[T any] struct {
	mu          sync.RWMutex
	subscribers map[int64]chan T
	nextID      atomic.Int64
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subscribers: make(map[int64]chan T)}
}

// Subscribe registers a subscriber and returns its id and channel.
func (b *Broker[T]) Subscribe() (int64, <-chan T) {
	id := b.nextID.Add(1)
	ch := make(chan T, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker[T]) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends v to every subscriber without blocking.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- v:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker[T]) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
