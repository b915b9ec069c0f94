package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub fans events out to independently subscribed consumers. Publish never
// blocks the publisher: a subscriber whose buffer is full loses the event and
// a warning is logged instead.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a consumer with the given channel buffer and returns
// its subscription id together with the receive channel.
func (h *Hub) Subscribe(buffer int) (string, <-chan Event) {
	if buffer <= 0 {
		buffer = 16
	}

	id := "sub-" + uuid.New().String()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch

	return id, ch
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber.
func (h *Hub) Publish(event Event) {
	if event.ID == "" {
		event.ID = "evt-" + uuid.New().String()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("subscription_id", id).
				Str("kind", string(event.Kind)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Close tears the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
