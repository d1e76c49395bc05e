package domain

// Event is the JSON envelope exchanged with clients in both directions.
// Inbound events carry a type plus whichever fields that type needs;
// outbound events reuse the same shape.
type Event struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// Wire event types.
const (
	EventCreateRoom  = "create room"
	EventJoinRoom    = "join room"
	EventChatMessage = "chat message"
	EventRoomInfo    = "room info"
)

type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// SessionHandler receives the lifecycle and traffic of one connection.
// Connected is called exactly once before any Handle call; Disconnected is
// called exactly once after the readPump exits.
type SessionHandler interface {
	Connected(conn Connection)
	Handle(conn Connection, data []byte)
	Disconnected(conn Connection)
}
