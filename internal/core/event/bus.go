// Package event provides the engine's double-buffered typed event bus.
// Events emitted during tick N are delivered at the start of tick N+1, so
// systems never observe events raised mid-frame by systems running after
// them.
package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. SwapBuffers is called once at tick
// start by the world's update loop.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer, readable next tick.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], fn)
	b.mu.Unlock()
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers every front-buffer event to its subscribed
// handlers. Safe because Subscribe and Emit key by the same type.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	front := b.front
	handlers := b.handlers
	b.mu.Unlock()
	for t, events := range front {
		hs := handlers[t]
		for _, ev := range events {
			for _, h := range hs {
				callHandler(h, ev)
			}
		}
	}
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
