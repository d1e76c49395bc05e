// Package hub holds the room membership directory and the broadcast engine.
package hub

import (
	"log/slog"
	"sync"
)

// Directory maps room codes to member connection ids. It is a pure
// membership store: it never invents room codes and never touches the
// connections themselves. A reverse index keeps each connection in at most
// one room.
type Directory struct {
	rooms  map[string]map[string]struct{}
	byConn map[string]string
	mu     sync.RWMutex
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Join adds connID to roomCode, creating the room if absent. Joining a new
// room leaves the previous one first; re-joining the current room is a
// no-op. Room codes are opaque case-sensitive strings.
func (d *Directory) Join(roomCode, connID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.byConn[connID]; ok {
		if prev == roomCode {
			return roomCode
		}
		d.removeLocked(prev, connID)
	}

	members, ok := d.rooms[roomCode]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[roomCode] = members
	}
	members[connID] = struct{}{}
	d.byConn[connID] = roomCode

	slog.Info("room joined", "room", roomCode, "clientId", connID, "members", len(members))
	return roomCode
}

// Leave removes connID from whatever room it belongs to. No-op for
// roomless connections.
func (d *Directory) Leave(connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.byConn[connID]
	if !ok {
		return
	}
	d.removeLocked(room, connID)
	delete(d.byConn, connID)
}

func (d *Directory) removeLocked(roomCode, connID string) {
	members, ok := d.rooms[roomCode]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(d.rooms, roomCode)
		slog.Info("room removed", "room", roomCode)
	}
}

// MembersOf returns a snapshot of the room's member ids. Unknown rooms
// yield an empty slice, never an error.
func (d *Directory) MembersOf(roomCode string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := make([]string, 0, len(d.rooms[roomCode]))
	for id := range d.rooms[roomCode] {
		members = append(members, id)
	}
	return members
}

func (d *Directory) RoomOf(connID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.byConn[connID]
	return room, ok
}

func (d *Directory) Stats() (rooms, members int) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms = len(d.rooms)
	members = len(d.byConn)
	return rooms, members
}
