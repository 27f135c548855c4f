package service

import (
	"sync"

	"github.com/DevRickLin/whats-live/internal/metrics"
)

// Subscriber is a channel that receives published values
type Subscriber[T any] chan T

// Broker fans published values out to subscribers. Publishing never blocks
// on a slow subscriber; a full subscriber buffer skips the value.
type Broker[T any] struct {
	subscribers map[Subscriber[T]]bool
	mu          sync.RWMutex
	eventCh     chan T
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new broker
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[Subscriber[T]]bool),
		eventCh:     make(chan T, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the distribution loop
func (b *Broker[T]) Start() {
	go b.run()
}

// Stop stops the distribution loop
func (b *Broker[T]) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription
func (b *Broker[T]) Subscribe() Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber[T], 50)
	b.subscribers[sub] = true
	metrics.StreamSubscribers.Inc()
	return sub
}

// Unsubscribe removes and closes a subscription
func (b *Broker[T]) Unsubscribe(sub Subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subscribers[sub] {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
	metrics.StreamSubscribers.Dec()
}

// Publish queues v for all subscribers
func (b *Broker[T]) Publish(v T) {
	select {
	case b.eventCh <- v:
	case <-b.stopCh:
	}
}

func (b *Broker[T]) run() {
	for {
		select {
		case v := <-b.eventCh:
			b.broadcast(v)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker[T]) broadcast(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- v:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
