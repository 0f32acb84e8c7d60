// Package broadcast fans a processed frame out to every connected viewer.
// Delivery is best-effort: a subscriber whose send buffer is full is
// evicted immediately rather than allowed to apply back-pressure to the
// pipeline. The hub never blocks on a slow viewer.
package broadcast

import (
	"sync"

	"github.com/banshee-data/scan360/internal/scan/scanlog"
	"github.com/google/uuid"
)

// sendBufferSize bounds how many frames a viewer can lag behind before it is
// dropped. The pipeline produces frames faster than most viewers render
// them, so a small buffer is deliberate: it absorbs a brief stall without
// queueing unboundedly.
const sendBufferSize = 4

// Subscriber is one connected viewer's outbound queue. The HTTP layer reads
// from Send and writes each payload to its WebSocket connection.
type Subscriber struct {
	ID   uuid.UUID
	Send chan []byte
}

// Hub owns the current subscriber set. It is mutated by the HTTP acceptor on
// connect/disconnect and read by the pipeline task on every broadcast;
// membership changes are serialized by mu, which is held only across the
// snapshot or mutation, never across an individual send.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscriber
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]*Subscriber)}
}

// Register adds a new subscriber and returns it; the caller (the WebSocket
// handler) ranges over Send until the connection closes, then calls
// Unregister.
func (h *Hub) Register() *Subscriber {
	s := &Subscriber{ID: uuid.New(), Send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	return s
}

// Unregister removes a subscriber. Safe to call more than once.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Count returns the number of currently registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast delivers payload to every subscriber. A subscriber whose buffer
// is full is evicted on this call rather than blocked on; the pipeline never
// waits for a slow viewer.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		select {
		case s.Send <- payload:
		default:
			scanlog.Ops("evicting slow subscriber %s: send buffer full", s.ID)
			h.Unregister(s.ID)
		}
	}
}
