package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(0)
	defer bus.Shutdown()

	var called bool
	sub := bus.Subscribe(EventRouted, func(ec *EventContext) { called = true })
	require.NotNil(t, sub)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, EventRouted, sub.Event)

	ec := &EventContext{Event: EventRouted, Data: map[string]interface{}{"path": "server"}}
	bus.Publish(ec)
	assert.True(t, called)
	assert.False(t, ec.Timestamp.IsZero())
}

func TestBus_Filter(t *testing.T) {
	bus := NewBus(0)
	defer bus.Shutdown()

	var count int32
	bus.SubscribeWithFilter(EventPathFailed, func(*EventContext) {
		atomic.AddInt32(&count, 1)
	}, func(ec *EventContext) bool { return ec.Path == "server" })

	bus.Publish(&EventContext{Event: EventPathFailed, Path: "on_device"})
	bus.Publish(&EventContext{Event: EventPathFailed, Path: "server"})
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(0)
	defer bus.Shutdown()

	var a, b int32
	subA := bus.Subscribe(EventCompleted, func(*EventContext) { atomic.AddInt32(&a, 1) })
	bus.Subscribe(EventCompleted, func(*EventContext) { atomic.AddInt32(&b, 1) })

	subA.Unsubscribe()
	bus.Publish(&EventContext{Event: EventCompleted})
	assert.Equal(t, int32(0), atomic.LoadInt32(&a))
	assert.Equal(t, int32(1), atomic.LoadInt32(&b))
}

func TestBus_PanicIsolation(t *testing.T) {
	bus := NewBus(0)
	defer bus.Shutdown()

	var after bool
	bus.Subscribe(EventRejected, func(*EventContext) { panic("boom") })
	bus.Subscribe(EventRejected, func(*EventContext) { after = true })

	assert.NotPanics(t, func() { bus.Publish(&EventContext{Event: EventRejected}) })
	assert.True(t, after)
}

func TestBus_PublishAsync(t *testing.T) {
	bus := NewBus(10)
	defer bus.Shutdown()

	got := make(chan string, 1)
	bus.Subscribe(EventClassified, func(ec *EventContext) { got <- ec.RequestID })
	bus.PublishAsync(&EventContext{Event: EventClassified, RequestID: "req-1"})

	select {
	case id := <-got:
		assert.Equal(t, "req-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("async event not delivered")
	}
}

func TestBus_ShutdownIsIdempotent(t *testing.T) {
	bus := NewBus(1)
	bus.Shutdown()
	bus.Shutdown()
	assert.NotPanics(t, func() { bus.PublishAsync(&EventContext{Event: EventCompleted}) })
}
