package ws

import "sync"

// Registry holds every open connection, authenticated or not. It is the
// single fanout point: all broadcasts walk its client map.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add registers a freshly upgraded connection.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// Remove drops a connection and reports whether it was present, so a
// double close never runs the teardown path twice.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	return true
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast queues data on every connection. A slow client's full buffer
// drops the message for that client only; delivery keeps best-effort
// semantics and never blocks the caller.
func (r *Registry) Broadcast(data []byte) {
	r.BroadcastExcept(data, "")
}

// BroadcastExcept queues data on every connection except the given id.
func (r *Registry) BroadcastExcept(data []byte, excludeID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, c := range r.clients {
		if id == excludeID {
			continue
		}
		c.Send(data)
	}
}
