package tracking

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/tracking/metrics"
)

// Bus fans events out to consumers. Publishing never blocks: a subscriber
// whose buffer is full misses the event and the drop is counted.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.Event
	closed bool
	log    *slog.Logger
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan domain.Event),
		log:  slog.Default().With("component", "bus"),
	}
}

// Subscribe registers a consumer and returns its token and channel.
func (b *Bus) Subscribe(buffer int) (string, <-chan domain.Event) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Event, buffer)
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a consumer. Safe to call with an unknown token.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
			b.log.Warn("Dropping event for slow consumer", "event", ev.Type, "subscriber", id)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
