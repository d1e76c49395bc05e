// Package registry tracks every live connection by its identity.
package registry

import (
	"sync"

	"room-relay-server/domain"
)

type Registry struct {
	conns map[string]domain.Connection
	mu    sync.RWMutex
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]domain.Connection),
	}
}

func (r *Registry) Register(conn domain.Connection) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()
}

// Deregister is idempotent: disconnect notifications can race with cleanup,
// so removing an unknown id is a no-op.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) Get(id string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
