package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps recipient identity to the set of live connections. Mutations
// are atomic per recipient; the gateway and delivery worker run in parallel
// goroutines.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uuid.UUID]map[Conn]struct{}),
	}
}

func (r *Registry) Register(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.clients[userID]
	if !ok {
		bucket = make(map[Conn]struct{})
		r.clients[userID] = bucket
	}
	bucket[conn] = struct{}{}
}

// Unregister drops the connection; the recipient's bucket is removed entirely
// once empty so idle users don't leak.
func (r *Registry) Unregister(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.clients[userID]
	if !ok {
		return
	}
	delete(bucket, conn)
	if len(bucket) == 0 {
		delete(r.clients, userID)
	}
}

// Get returns a snapshot of the recipient's connections.
func (r *Registry) Get(userID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.clients[userID]
	if !ok {
		return nil
	}

	conns := make([]Conn, 0, len(bucket))
	for conn := range bucket {
		conns = append(conns, conn)
	}
	return conns
}

// Len reports the total number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, bucket := range r.clients {
		n += len(bucket)
	}
	return n
}
