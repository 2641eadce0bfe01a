package chat

import "sync"

// Registry maps roomId -> set of live connections. It is the only
// concurrently mutated shared state in the session core; join, leave, and
// broadcast may run from any connection-handling goroutine. Membership is
// process-memory only and rebuilt as clients rejoin after a restart.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	members map[*Client]map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[*Client]bool),
		members: make(map[*Client]map[string]bool),
	}
}

// Join registers the client in the room. Joining twice is a no-op, so a
// rejoin never duplicates delivery. Joining a second room keeps the first
// membership; fan-out always targets one declared room.
func (r *Registry) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[*Client]bool)
	}
	r.rooms[roomID][c] = true

	if r.members[c] == nil {
		r.members[c] = make(map[string]bool)
	}
	r.members[c][roomID] = true
}

// Leave removes all memberships for the client. Safe to call for a client
// that never joined anything.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(c)
}

func (r *Registry) dropLocked(c *Client) {
	for roomID := range r.members[c] {
		delete(r.rooms[roomID], c)
		if len(r.rooms[roomID]) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.members, c)
}

// Broadcast delivers the payload to every connection currently registered
// for the room, the sender included. Clients whose send buffer is full are
// dropped, matching the write-pump backpressure policy.
func (r *Registry) Broadcast(roomID string, payload []byte) {
	r.mu.RLock()
	var stale []*Client
	for c := range r.rooms[roomID] {
		if !c.deliver(payload) {
			stale = append(stale, c)
		}
	}
	r.mu.RUnlock()

	if len(stale) == 0 {
		return
	}
	r.mu.Lock()
	for _, c := range stale {
		r.dropLocked(c)
	}
	r.mu.Unlock()
	for _, c := range stale {
		c.closeSend()
	}
}

// Count reports how many connections are registered for the room.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
