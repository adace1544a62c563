// Package bus provides a type-routed publish/subscribe channel used to
// decouple session-lifecycle notifications from their consumers.
//
// Delivery is synchronous and in publish order: Publish invokes every
// matching subscriber on the caller's goroutine before returning. The bus
// assumes no thread affinity; consumers that need a particular goroutine
// (a TUI event loop, say) redispatch themselves.
package bus

import (
	"reflect"
	"sync"
)

// Bus routes published messages to subscribers by message type.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type][]*Subscription
	nextID uint64
	closed bool
}

// Subscription is a handle to a registered subscriber.
// Cancel removes the subscriber; it is safe to call more than once.
type Subscription struct {
	bus     *Bus
	msgType reflect.Type
	id      uint64
	fn      func(any)
}

// Cancel removes this subscription from the bus.
func (s *Subscription) Cancel() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s)
	s.bus = nil
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[reflect.Type][]*Subscription),
	}
}

// Subscribe registers fn to receive every message of type T published on b.
// The returned Subscription cancels the registration.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	msgType := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus:     b,
		msgType: msgType,
		id:      b.nextID,
		fn:      func(msg any) { fn(msg.(T)) },
	}
	b.nextID++

	if b.closed {
		// A subscription on a closed bus is inert but still cancellable.
		sub.bus = nil
		return sub
	}

	b.subs[msgType] = append(b.subs[msgType], sub)
	return sub
}

// Publish delivers msg synchronously to every subscriber registered for
// msg's type, in subscription order. Publishing on a closed bus is a no-op.
func Publish[T any](b *Bus, msg T) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	// Snapshot so a subscriber may cancel (or subscribe) during delivery.
	subs := make([]*Subscription, len(b.subs[msgType]))
	copy(subs, b.subs[msgType])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(msg)
	}
}

// SubscriberCount returns the number of live subscriptions for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Close drops all subscribers. Subsequent Publish calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subs = make(map[reflect.Type][]*Subscription)
}

// remove unregisters a subscription.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.msgType]
	filtered := subs[:0]
	for _, s := range subs {
		if s.id != sub.id {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		delete(b.subs, sub.msgType)
	} else {
		b.subs[sub.msgType] = filtered
	}
}
