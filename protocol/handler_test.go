package protocol

import (
	"encoding/json"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-relay-server/domain"
	"room-relay-server/hub"
	"room-relay-server/registry"
)

type mockConn struct {
	id       string
	received [][]byte
	mu       sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error { return nil }

func (m *mockConn) events(t *testing.T) []domain.Event {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Event, len(m.received))
	for i, raw := range m.received {
		require.NoError(t, json.Unmarshal(raw, &out[i]))
	}
	return out
}

func newTestHandler() (*Handler, *registry.Registry, *hub.Directory) {
	reg := registry.New()
	dir := hub.NewDirectory()
	engine := hub.NewEngine(dir, reg)
	return NewHandler(reg, dir, engine), reg, dir
}

func send(h *Handler, conn domain.Connection, ev domain.Event) {
	data, _ := json.Marshal(ev)
	h.Handle(conn, data)
}

func TestHandler_CreateRoomWithCode(t *testing.T) {
	h, _, dir := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)

	send(h, conn, domain.Event{Type: domain.EventCreateRoom, Room: "abcd1234"})

	assert.ElementsMatch(t, []string{"a"}, dir.MembersOf("abcd1234"))

	events := conn.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRoomInfo, events[0].Type)
	assert.Equal(t, "abcd1234", events[0].Room)
}

func TestHandler_CreateRoomGeneratesCode(t *testing.T) {
	h, _, dir := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)

	send(h, conn, domain.Event{Type: domain.EventCreateRoom})

	events := conn.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRoomInfo, events[0].Type)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), events[0].Room)
	assert.ElementsMatch(t, []string{"a"}, dir.MembersOf(events[0].Room))
}

func TestHandler_JoinRoom(t *testing.T) {
	h, _, dir := newTestHandler()
	creator := &mockConn{id: "a"}
	joiner := &mockConn{id: "b"}
	h.Connected(creator)
	h.Connected(joiner)

	send(h, creator, domain.Event{Type: domain.EventCreateRoom, Room: "abcd1234"})
	send(h, joiner, domain.Event{Type: domain.EventJoinRoom, Room: "abcd1234"})

	assert.ElementsMatch(t, []string{"a", "b"}, dir.MembersOf("abcd1234"))

	// The confirmation goes to the joiner only.
	events := joiner.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRoomInfo, events[0].Type)
	assert.Equal(t, "abcd1234", events[0].Room)
	assert.Len(t, creator.events(t), 1)
}

func TestHandler_JoinEmptyRoomIgnored(t *testing.T) {
	h, _, dir := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)

	send(h, conn, domain.Event{Type: domain.EventJoinRoom, Room: ""})

	rooms, members := dir.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, members)
	assert.Empty(t, conn.events(t))
}

func TestHandler_ChatMessageFanOut(t *testing.T) {
	h, _, _ := newTestHandler()
	a := &mockConn{id: "a"}
	b := &mockConn{id: "b"}
	outsider := &mockConn{id: "c"}
	h.Connected(a)
	h.Connected(b)
	h.Connected(outsider)

	send(h, a, domain.Event{Type: domain.EventCreateRoom, Room: "abcd1234"})
	send(h, b, domain.Event{Type: domain.EventJoinRoom, Room: "abcd1234"})
	send(h, outsider, domain.Event{Type: domain.EventCreateRoom, Room: "elsewhere"})

	send(h, a, domain.Event{Type: domain.EventChatMessage, Room: "abcd1234", Msg: "hi"})

	for _, member := range []*mockConn{a, b} {
		events := member.events(t)
		require.Len(t, events, 2, "conn %s", member.ID())
		assert.Equal(t, domain.EventChatMessage, events[1].Type)
		assert.Equal(t, "hi", events[1].Msg)
	}

	// Only the room-info confirmation, no chat message.
	assert.Len(t, outsider.events(t), 1)
}

func TestHandler_ChatMessageToUnknownRoom(t *testing.T) {
	h, _, _ := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)

	send(h, conn, domain.Event{Type: domain.EventChatMessage, Room: "nowhere", Msg: "hello?"})

	assert.Empty(t, conn.events(t))
}

func TestHandler_InvalidPayloadIgnored(t *testing.T) {
	h, _, dir := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)

	h.Handle(conn, []byte("not json"))
	send(h, conn, domain.Event{Type: "presence ping"})

	rooms, _ := dir.Stats()
	assert.Equal(t, 0, rooms)
	assert.Empty(t, conn.events(t))
}

func TestHandler_DisconnectCleansUp(t *testing.T) {
	h, reg, dir := newTestHandler()
	conn := &mockConn{id: "a"}
	h.Connected(conn)
	require.True(t, reg.Exists("a"))

	send(h, conn, domain.Event{Type: domain.EventCreateRoom, Room: "abcd1234"})
	h.Disconnected(conn)

	assert.False(t, reg.Exists("a"))
	assert.Empty(t, dir.MembersOf("abcd1234"))

	// Racing a second disconnect is harmless.
	h.Disconnected(conn)
}

func TestHandler_SessionScenario(t *testing.T) {
	h, _, _ := newTestHandler()
	a := &mockConn{id: "a"}
	b := &mockConn{id: "b"}
	h.Connected(a)
	h.Connected(b)

	send(h, a, domain.Event{Type: domain.EventCreateRoom, Room: "abcd1234"})
	send(h, b, domain.Event{Type: domain.EventJoinRoom, Room: "abcd1234"})
	send(h, a, domain.Event{Type: domain.EventChatMessage, Room: "abcd1234", Msg: "hi"})

	h.Disconnected(b)
	send(h, a, domain.Event{Type: domain.EventChatMessage, Room: "abcd1234", Msg: "still there?"})

	aEvents := a.events(t)
	require.Len(t, aEvents, 3)
	assert.Equal(t, domain.EventRoomInfo, aEvents[0].Type)
	assert.Equal(t, "hi", aEvents[1].Msg)
	assert.Equal(t, "still there?", aEvents[2].Msg)

	bEvents := b.events(t)
	require.Len(t, bEvents, 2)
	assert.Equal(t, domain.EventRoomInfo, bEvents[0].Type)
	assert.Equal(t, "hi", bEvents[1].Msg)
}
