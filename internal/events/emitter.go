// Package events publishes runtime notifications so presentation layers can
// react to list loads, failures and filter changes.
package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Handler receives events from a Bus.
type Handler func(ctx context.Context, event interfaces.Event)

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers handler and returns a function that removes it.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
		b.order = slices.DeleteFunc(b.order, func(other int) bool { return other == id })
	}
}

// Len reports the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Emit delivers event to every current subscriber.
func (b *Bus) Emit(ctx context.Context, event interfaces.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, id := range b.order {
		if handler, ok := b.handlers[id]; ok {
			handlers = append(handlers, handler)
		}
	}
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(ctx, event)
	}
}

// Emitter stamps and publishes typed runtime events.
type Emitter struct {
	sink interfaces.EventSink
	now  func() time.Time
	id   func() uuid.UUID
}

// EmitterOption customises an emitter.
type EmitterOption func(*Emitter)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(id func() uuid.UUID) EmitterOption {
	return func(e *Emitter) {
		if id != nil {
			e.id = id
		}
	}
}

// NewEmitter wraps sink. A nil sink discards events.
func NewEmitter(sink interfaces.EventSink, opts ...EmitterOption) *Emitter {
	e := &Emitter{sink: sink, now: time.Now, id: uuid.New}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Loaded announces a committed record set.
func (e *Emitter) Loaded(ctx context.Context, listID string, records []domain.Record, total int, filters domain.Filters) {
	payload := make([]map[string]any, len(records))
	for i, record := range records {
		payload[i] = map[string]any(record)
	}
	e.emit(ctx, interfaces.Event{
		Type:       interfaces.EventListLoaded,
		ListID:     listID,
		Records:    payload,
		TotalCount: total,
		Filters:    filters.Map(),
	})
}

// Failed announces an error with a short description of what was attempted.
func (e *Emitter) Failed(ctx context.Context, listID string, err error, detail string) {
	e.emit(ctx, interfaces.Event{
		Type:    interfaces.EventError,
		ListID:  listID,
		Err:     err,
		Context: detail,
	})
}

// FilterChanged announces a new filter set for a list.
func (e *Emitter) FilterChanged(ctx context.Context, listID string, filters domain.Filters) {
	e.emit(ctx, interfaces.Event{
		Type:    interfaces.EventFilterChanged,
		ListID:  listID,
		Filters: filters.Map(),
	})
}

func (e *Emitter) emit(ctx context.Context, event interfaces.Event) {
	if e == nil || e.sink == nil {
		return
	}
	event.ID = e.id()
	event.At = e.now()
	e.sink.Emit(ctx, event)
}

// Recorder is a sink that keeps every event, for tests and debugging.
type Recorder struct {
	mu     sync.Mutex
	events []interfaces.Event
}

// Emit stores event.
func (r *Recorder) Emit(_ context.Context, event interfaces.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []interfaces.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t interfaces.EventType) []interfaces.Event {
	var out []interfaces.Event
	for _, event := range r.Events() {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}
