package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryBroker fans messages out to every subscriber of a topic. Used when
// no Redpanda brokers are configured and in tests.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	offsets     map[string]int64
	closed      bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		offsets:     make(map[string]int64),
	}
}

// Publish delivers the message to current subscribers. Messages published
// before a subscription are not replayed.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a buffered channel for topic.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, 100)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch, nil
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan Message)
	return nil
}
