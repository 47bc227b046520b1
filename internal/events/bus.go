// Package events fans post lifecycle transitions out to in-process subscribers.
package events

import (
	"sync"
	"time"

	"github.com/damoang/angple-qualitygate/internal/domain"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// Wildcard subscribes to every event type
const Wildcard = "*"

// Event one committed lifecycle transition
type Event struct {
	Type     domain.AuditEventType `json:"type"`
	PostID   string                `json:"postId"`
	TenantID string                `json:"tenantId"`
	Actor    string                `json:"actor"`
	Details  domain.AuditDetails   `json:"details,omitempty"`
	At       time.Time             `json:"at"`
}

// Handler event callback
type Handler func(event Event)

type subscription struct {
	name    string
	handler Handler
}

// Bus synchronous publish/subscribe. Handlers run in subscription order and
// a panicking handler never stops the others.
type Bus struct {
	subscribers map[string][]subscription
	mu          sync.RWMutex
}

// NewBus creates an empty Bus
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]subscription)}
}

// Subscribe registers handler for an event type, or Wildcard
func (b *Bus) Subscribe(name, eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{name: name, handler: handler})
	logger.GetLogger().Debug().Str("subscriber", name).Str("type", eventType).Msg("event subscriber registered")
}

// Unsubscribe removes every subscription registered under name
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.subscribers {
		var remaining []subscription
		for _, s := range subs {
			if s.name != name {
				remaining = append(remaining, s)
			}
		}
		if len(remaining) == 0 {
			delete(b.subscribers, eventType)
		} else {
			b.subscribers[eventType] = remaining
		}
	}
}

// Publish delivers event to matching subscribers
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subscribers[string(event.Type)])+len(b.subscribers[Wildcard]))
	subs = append(subs, b.subscribers[string(event.Type)]...)
	subs = append(subs, b.subscribers[Wildcard]...)
	b.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.GetLogger().Error().
						Str("subscriber", s.name).
						Str("type", string(event.Type)).
						Str("post_id", event.PostID).
						Interface("panic", r).
						Msg("event handler panicked")
				}
			}()
			s.handler(event)
		}()
	}
}

// Subscriptions subscriber names per event type
func (b *Bus) Subscriptions() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make(map[string][]string)
	for eventType, subs := range b.subscribers {
		for _, s := range subs {
			result[eventType] = append(result[eventType], s.name)
		}
	}
	return result
}
