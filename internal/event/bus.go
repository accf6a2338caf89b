package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// wildcardTopic is the internal key for SubscribeAll handlers.
const wildcardTopic = "*"

// Handler handles a published message.
type Handler func(Message)

// Logger is the logging interface used for recovered handler panics.
type Logger interface {
	Error(msg string, args ...any)
}

type subscription struct {
	id      string
	topic   string
	handler Handler
}

// Bus is a synchronous topic-keyed pub-sub bus.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // topic -> subscriptions
	nextID        atomic.Uint64
	logger        Logger
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
	}
}

// SetLogger sets the logger used for recovered handler panics.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// Subscribe registers a handler for one literal topic.
// Returns a subscription ID that can be passed to Unsubscribe.
func (b *Bus) Subscribe(topic string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions[topic] = append(b.subscriptions[topic], subscription{
		id:      id,
		topic:   topic,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler that receives every published message.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcardTopic, handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			remaining := make([]subscription, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.subscriptions, topic)
			} else {
				b.subscriptions[topic] = remaining
			}
			return true
		}
	}
	return false
}

// Publish delivers msg to the handlers subscribed to msg.Topic(), then to
// wildcard handlers.
func (b *Bus) Publish(msg Message) {
	topic := msg.Topic()

	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[topic]...)
	var wildcard []subscription
	if topic != wildcardTopic {
		wildcard = append(wildcard, b.subscriptions[wildcardTopic]...)
	}
	logger := b.logger
	b.mu.RUnlock()

	for _, sub := range specific {
		safeCall(logger, sub.handler, msg)
	}
	for _, sub := range wildcard {
		safeCall(logger, sub.handler, msg)
	}
}

func safeCall(logger Logger, handler Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("event handler panic recovered",
				"topic", msg.Topic(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	handler(msg)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subscriptions = make(map[string][]subscription)
	b.mu.Unlock()
}
