package notify

import "sync"

// Hub fans events out to subscribers keyed by tenant id.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	nextID int
	subs   map[string]map[int]chan Event
	closed bool
}

// NewHub builds a hub whose subscriber channels buffer the given number of
// events before drops begin.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[int]chan Event),
	}
}

// Subscribe registers a listener for one tenant's events. The returned cancel
// func unregisters the listener and closes its channel; it is safe to call
// more than once.
func (h *Hub) Subscribe(tenantID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	if h.subs[tenantID] == nil {
		h.subs[tenantID] = make(map[int]chan Event)
	}
	h.subs[tenantID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if listeners, ok := h.subs[tenantID]; ok {
				if _, live := listeners[id]; live {
					delete(listeners, id)
					close(ch)
				}
				if len(listeners) == 0 {
					delete(h.subs, tenantID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the tenant. It never
// blocks: a full subscriber channel drops the event.
func (h *Hub) Publish(tenantID string, evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs[tenantID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscribers for a tenant.
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tenantID])
}

// Close terminates all subscriptions. Further publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for tenant, listeners := range h.subs {
		for id, ch := range listeners {
			delete(listeners, id)
			close(ch)
		}
		delete(h.subs, tenant)
	}
}
