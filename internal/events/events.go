// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package events is the in-process bus the processor publishes request
// lifecycle events on.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Event names a lifecycle event.
type Event string

const (
	EventClassified    Event = "request.classified"
	EventRouted        Event = "request.routed"
	EventUnserviceable Event = "request.unserviceable"
	EventPathFailed    Event = "path.failed"
	EventRejected      Event = "response.rejected"
	EventCompleted     Event = "request.completed"
	EventConfigReload  Event = "config.reloaded"
)

// EventContext carries one published event.
type EventContext struct {
	Event     Event
	RequestID string
	Intent    string
	Path      string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Subscription is a handle for a registered subscriber.
type Subscription struct {
	ID          string
	Event       Event
	Callback    func(*EventContext)
	Filter      func(*EventContext) bool
	Unsubscribe func()
}

// Bus distributes events to subscribers.
type Bus struct {
	subscribers  map[Event][]*Subscription
	mu           sync.RWMutex
	queue        chan *EventContext
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
	dropped      int64
}

// NewBus creates a bus with an asynchronous queue of the given size.
func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subscribers: make(map[Event][]*Subscription),
		queue:       make(chan *EventContext, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go b.processQueue()
	return b
}

// Subscribe registers a callback for an event.
func (b *Bus) Subscribe(event Event, callback func(*EventContext)) *Subscription {
	return b.SubscribeWithFilter(event, callback, nil)
}

// SubscribeWithFilter registers a callback that only sees events the filter
// accepts.
func (b *Bus) SubscribeWithFilter(event Event, callback func(*EventContext), filter func(*EventContext) bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		ID:       uuid.NewString(),
		Event:    event,
		Callback: callback,
		Filter:   filter,
	}
	sub.Unsubscribe = func() { b.unsubscribe(sub) }

	b.subscribers[event] = append(b.subscribers[event], sub)
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.Event]
	for i, s := range subs {
		if s.ID == sub.ID {
			b.subscribers[sub.Event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Publish delivers an event to its subscribers synchronously. A panicking
// subscriber is logged and does not affect the others.
func (b *Bus) Publish(ec *EventContext) {
	if ec.Timestamp.IsZero() {
		ec.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]*Subscription, len(b.subscribers[ec.Event]))
	copy(subs, b.subscribers[ec.Event])
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.Filter != nil && !sub.Filter(ec) {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("panic in event subscriber for %s: %v", ec.Event, r)
				}
			}()
			sub.Callback(ec)
		}()
	}
}

// PublishAsync queues an event. Events are dropped when the queue is full or
// the bus is shut down.
func (b *Bus) PublishAsync(ec *EventContext) {
	if ec.Timestamp.IsZero() {
		ec.Timestamp = time.Now()
	}
	select {
	case <-b.ctx.Done():
		return
	default:
	}

	select {
	case b.queue <- ec:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		log.Warnf("event queue full, dropping event: %s", ec.Event)
	}
}

func (b *Bus) processQueue() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case ec := <-b.queue:
			if ec != nil {
				b.Publish(ec)
			}
		}
	}
}

// Dropped returns how many async events were discarded.
func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Shutdown stops the async queue. Queued events not yet delivered are
// discarded.
func (b *Bus) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.cancel()
		<-b.done
	})
}
