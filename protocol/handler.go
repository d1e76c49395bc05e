// Package protocol interprets the wire events of one chat session and
// drives room membership and fan-out accordingly.
package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"room-relay-server/domain"
	"room-relay-server/hub"
	"room-relay-server/metrics"
	"room-relay-server/registry"
)

type Handler struct {
	reg    *registry.Registry
	dir    *hub.Directory
	engine *hub.Engine
}

func NewHandler(reg *registry.Registry, dir *hub.Directory, engine *hub.Engine) *Handler {
	return &Handler{reg: reg, dir: dir, engine: engine}
}

func (h *Handler) Connected(conn domain.Connection) {
	h.reg.Register(conn)
	metrics.ConnectionsOpen.Inc()
	slog.Info("client connected", "clientId", conn.ID())
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		slog.Warn("invalid event", "clientId", conn.ID(), "error", err)
		return
	}

	switch ev.Type {
	case domain.EventCreateRoom:
		code := ev.Room
		if code == "" {
			code = newRoomCode()
		}
		h.dir.Join(code, conn.ID())
		h.sendRoomInfo(conn, code)

	case domain.EventJoinRoom:
		// An empty join is silently ignored rather than rejected.
		if ev.Room == "" {
			return
		}
		h.dir.Join(ev.Room, conn.ID())
		h.sendRoomInfo(conn, ev.Room)

	case domain.EventChatMessage:
		metrics.MessagesReceived.Inc()
		out, err := json.Marshal(domain.Event{Type: domain.EventChatMessage, Msg: ev.Msg})
		if err != nil {
			slog.Warn("marshal error", "clientId", conn.ID(), "error", err)
			return
		}
		// Every member of the addressed room receives the message,
		// sender included. Membership of the sender is not checked.
		h.engine.Broadcast(ev.Room, out, "")

	default:
		slog.Warn("unknown event type", "clientId", conn.ID(), "type", ev.Type)
	}
}

func (h *Handler) Disconnected(conn domain.Connection) {
	h.dir.Leave(conn.ID())
	h.reg.Deregister(conn.ID())
	metrics.ConnectionsOpen.Dec()
	slog.Info("client disconnected", "clientId", conn.ID())
}

func (h *Handler) sendRoomInfo(conn domain.Connection, code string) {
	out, err := json.Marshal(domain.Event{Type: domain.EventRoomInfo, Room: code})
	if err != nil {
		slog.Warn("marshal error", "clientId", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(out); err != nil {
		slog.Warn("room info dropped", "clientId", conn.ID(), "error", err)
	}
}

// newRoomCode returns an 8-character lowercase hex code from 4 random bytes.
func newRoomCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
