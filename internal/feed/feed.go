package feed

import (
	"sync"

	"github.com/google/uuid"

	"github.com/prasenjit/route-explorer/internal/models"
)

// DefaultBuffer is the per-subscriber channel capacity
const DefaultBuffer = 100

// Hub fans recorded history entries out to live subscribers
type Hub struct {
	mu          sync.RWMutex
	buffer      int
	subscribers map[string]chan *models.TestLogEntry
	dropped     int64
}

// NewHub creates a hub. A non-positive buffer uses DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]chan *models.TestLogEntry),
	}
}

// Publish delivers e to every subscriber without blocking. Subscribers whose
// channel is full miss the entry.
func (h *Hub) Publish(e *models.TestLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Subscribe creates a subscription for live entries
func (h *Hub) Subscribe() (string, <-chan *models.TestLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.TestLogEntry, h.buffer)
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Close drops every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Stats returns hub counters
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]any{
		"activeSubscribers": len(h.subscribers),
		"dropped":           h.dropped,
	}
}
