package hub

import (
	"log/slog"
	"sync"

	"room-relay-server/metrics"
	"room-relay-server/registry"
)

// Engine fans a payload out to every live member of a room. Deliveries are
// best-effort: a member whose send fails is skipped, never aborting the
// rest of the fan-out.
type Engine struct {
	dir *Directory
	reg *registry.Registry

	// Serializes fan-outs so per-room delivery order matches call order.
	mu sync.Mutex
}

func NewEngine(dir *Directory, reg *registry.Registry) *Engine {
	return &Engine{dir: dir, reg: reg}
}

// Broadcast delivers payload to the members of roomCode, skipping excludeID
// when non-empty. Broadcasting to an unknown or empty room is a no-op.
func (e *Engine) Broadcast(roomCode string, payload []byte, excludeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.dir.MembersOf(roomCode) {
		if id == excludeID {
			continue
		}
		conn, ok := e.reg.Get(id)
		if !ok {
			// Membership can outlive the registry entry for a moment
			// during disconnect; treat as a dropped delivery.
			metrics.DeliveriesDropped.Inc()
			continue
		}
		if err := conn.Send(payload); err != nil {
			slog.Warn("delivery dropped", "room", roomCode, "clientId", id, "error", err)
			metrics.DeliveriesDropped.Inc()
			continue
		}
		metrics.Deliveries.Inc()
	}
}
