// Package events distributes order state change notifications to in-process
// collaborators (order history, notification dispatch).
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vendano/payflow/internal/domain/model"
)

// OrderStatusChanged is published after every applied order transition.
type OrderStatusChanged struct {
	OrderID  uuid.UUID
	Provider model.Provider
	From     model.OrderState
	To       model.OrderState
}

// Subscriber receives order status notifications. Handlers must not block.
type Subscriber func(OrderStatusChanged)

// Bus is a minimal synchronous fan-out of order status changes.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent publications.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers the event to every subscriber in registration order.
func (b *Bus) Publish(event OrderStatusChanged) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		s(event)
	}
}
