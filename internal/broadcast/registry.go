package broadcast

import "sync"

// HubRegistry maps live session IDs to their active hub so the viewer
// socket can report joins and leaves to the broadcaster's hub. Entries
// exist only while a demo is on air.
type HubRegistry struct {
	mu sync.Mutex
	m  map[string]*Hub
}

func NewHubRegistry() *HubRegistry {
	return &HubRegistry{m: make(map[string]*Hub)}
}

func (r *HubRegistry) Put(sessionID string, h *Hub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[sessionID] = h
}

func (r *HubRegistry) Get(sessionID string) (*Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.m[sessionID]
	return h, ok
}

func (r *HubRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, sessionID)
}
