package chat

import "sync"

// Registry maps group IDs to their hubs, creating hubs lazily on first use.
type Registry struct {
	mu   sync.Mutex
	hubs map[uint64]*Hub
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{hubs: make(map[uint64]*Hub)}
}

// Hub returns the hub for the group, starting one if needed.
func (r *Registry) Hub(groupID uint64) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	hub, ok := r.hubs[groupID]
	if !ok {
		hub = newHub(groupID)
		r.hubs[groupID] = hub
	}
	return hub
}

// Publish delivers a payload to the group's hub, if one is running. Groups
// nobody is listening to get no hub and the payload is dropped; clients
// catch up from the stored history on connect.
func (r *Registry) Publish(groupID uint64, payload []byte) {
	r.mu.Lock()
	hub, ok := r.hubs[groupID]
	r.mu.Unlock()
	if ok {
		hub.Publish(payload)
	}
}

// Drop tears down the group's hub, disconnecting its clients. Called when
// the group is deleted.
func (r *Registry) Drop(groupID uint64) {
	r.mu.Lock()
	hub, ok := r.hubs[groupID]
	if ok {
		delete(r.hubs, groupID)
	}
	r.mu.Unlock()
	if ok {
		hub.close()
	}
}

// Close tears down every hub.
func (r *Registry) Close() {
	r.mu.Lock()
	hubs := r.hubs
	r.hubs = make(map[uint64]*Hub)
	r.mu.Unlock()
	for _, hub := range hubs {
		hub.close()
	}
}
