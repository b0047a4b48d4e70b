package relay

import (
	"context"
	"sync"
	"time"
)

// MemoryBus is an in-process Bus. Single-instance deployments run on it when
// no NATS server is configured; tests use several transports sharing one to
// exercise the relay without external infrastructure.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[int]func(Message)
	nextID   int
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]func(Message))}
}

// Publish delivers msg synchronously to every subscribed handler.
func (b *MemoryBus) Publish(msg Message) error {
	b.mu.Lock()
	handlers := make([]func(Message), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

// Subscribe registers a handler.
func (b *MemoryBus) Subscribe(handler func(Message)) (BusSubscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	return &memorySubscription{bus: b, id: id}, nil
}

type memorySubscription struct {
	bus *MemoryBus
	id  int
}

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.handlers, s.id)
	return nil
}

// MemoryBuffer is an in-process Buffer with the same bounded, oldest-evicted
// semantics as the shared Postgres buffer.
type MemoryBuffer struct {
	mu       sync.Mutex
	entries  []Message
	cap      int
	watchers map[int]func()
	nextID   int
}

// NewMemoryBuffer creates an empty buffer with the given capacity.
func NewMemoryBuffer(capacity int) *MemoryBuffer {
	return &MemoryBuffer{
		cap:      capacity,
		watchers: make(map[int]func()),
	}
}

// Append stores msg, evicting the oldest entry on overflow, then signals
// watchers.
func (b *MemoryBuffer) Append(ctx context.Context, msg Message) error {
	b.mu.Lock()
	b.entries = append(b.entries, msg)
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
	watchers := make([]func(), 0, len(b.watchers))
	for _, w := range b.watchers {
		watchers = append(watchers, w)
	}
	b.mu.Unlock()

	// Signal outside the lock: watchers re-read the buffer.
	for _, w := range watchers {
		w()
	}
	return nil
}

// Read returns the buffered messages in append order.
func (b *MemoryBuffer) Read(ctx context.Context) ([]Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, len(b.entries))
	copy(out, b.entries)
	return out, nil
}

// Prune drops entries stamped before olderThan.
func (b *MemoryBuffer) Prune(ctx context.Context, olderThan time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.entries[:0]
	for _, msg := range b.entries {
		if !msg.Timestamp.Before(olderThan) {
			kept = append(kept, msg)
		}
	}
	b.entries = kept
	return nil
}

// Watch registers a change signal.
func (b *MemoryBuffer) Watch(signal func()) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.watchers[id] = signal

	stop := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
	}
	return stop, nil
}

// Len returns the number of buffered entries.
func (b *MemoryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}
