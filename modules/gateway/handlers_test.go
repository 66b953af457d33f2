package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/registry"
)

type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...any)         {}
func (l *noopLogger) Info(msg string, args ...any)          {}
func (l *noopLogger) Warn(msg string, args ...any)          {}
func (l *noopLogger) Error(msg string, args ...any)         {}
func (l *noopLogger) With(args ...any) types.Logger         { return l }
func (l *noopLogger) WithError(err error) types.Logger      { return l }
func (l *noopLogger) WithModule(module string) types.Logger { return l }

// fakeConn collects frames written to one connection.
type fakeConn struct {
	frames chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.frames <- data
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) next(t *testing.T) broadcast.Frame {
	t.Helper()
	select {
	case data := <-c.frames:
		var frame broadcast.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return broadcast.Frame{}
	}
}

func (c *fakeConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case data := <-c.frames:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

// laggingBus stands in for the event bus. It queues everything the
// engine emits and fans it out only on flush, so a test can interleave
// joins between a send and its delivery.
type laggingBus struct {
	hub     *broadcast.Hub
	pending []pendingFanout
}

type pendingFanout struct {
	code string
	seq  uint64
	data []byte
}

func (b *laggingBus) MessageSent(code string, seq uint64, msg chat.Message) {
	data, _ := broadcast.EncodeFrame("chat_message", msg)
	b.pending = append(b.pending, pendingFanout{code: code, seq: seq, data: data})
}

func (b *laggingBus) UserList(code string, users []string) {
	data, _ := broadcast.EncodeFrame("user_list", users)
	b.pending = append(b.pending, pendingFanout{code: code, data: data})
}

func (b *laggingBus) RoomCreated(code, name, createdBy string) {}

func (b *laggingBus) flush() {
	for _, p := range b.pending {
		b.hub.Broadcast(p.code, p.seq, p.data)
	}
	b.pending = nil
}

func newTestHandlers(t *testing.T) (*Handlers, *broadcast.Hub, *laggingBus) {
	t.Helper()

	hub := broadcast.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})

	bus := &laggingBus{hub: hub}
	engine := registry.NewEngine(registry.NewRoomStore(0), registry.NewSessionTracker(), bus, &noopLogger{})
	return NewHandlers(engine, hub, &noopLogger{}), hub, bus
}

func connect(t *testing.T, hub *broadcast.Hub, id string) (*broadcast.Client, *fakeConn) {
	t.Helper()

	conn := newFakeConn()
	client := &broadcast.Client{ID: id, Conn: conn}
	hub.Register(client)

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClient(id) == nil {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return client, conn
}

func wsFrame(t *testing.T, frameType string, payload any) broadcast.Frame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return broadcast.Frame{Type: frameType, Payload: raw}
}

func TestHandlers_JoinerGetsSnapshotAndUserList(t *testing.T) {
	h, hub, _ := newTestHandlers(t)

	alice, aliceConn := connect(t, hub, "conn-alice")
	h.handleFrame(alice, "conn-alice", wsFrame(t, "create_server", CreateServerPayload{
		Username:   "alice",
		ServerName: "Room A",
	}))

	joined := aliceConn.next(t)
	require.Equal(t, "joined_server", joined.Type)

	var snap chat.RoomSnapshot
	require.NoError(t, json.Unmarshal(joined.Payload, &snap))
	assert.Equal(t, "Room A", snap.ServerName)

	// The creator receives the member list directly; the copy on the
	// bus predates her room binding and cannot reach her.
	userList := aliceConn.next(t)
	require.Equal(t, "user_list", userList.Type)

	var users []string
	require.NoError(t, json.Unmarshal(userList.Payload, &users))
	assert.Equal(t, []string{"alice"}, users)
}

func TestHandlers_JoinDoesNotReplaySnapshotMessages(t *testing.T) {
	h, hub, bus := newTestHandlers(t)

	alice, aliceConn := connect(t, hub, "conn-alice")
	h.handleFrame(alice, "conn-alice", wsFrame(t, "create_server", CreateServerPayload{
		Username:   "alice",
		ServerName: "Room A",
	}))

	joined := aliceConn.next(t)
	require.Equal(t, "joined_server", joined.Type)
	var snap chat.RoomSnapshot
	require.NoError(t, json.Unmarshal(joined.Payload, &snap))
	require.Equal(t, "user_list", aliceConn.next(t).Type)

	// alice sends a message whose fan-out has not gone out yet when
	// bob joins.
	h.handleFrame(alice, "conn-alice", wsFrame(t, "chat_message", ChatMessagePayload{
		Username: "alice",
		ServerID: snap.ServerID,
		Type:     "text",
		Text:     "early bird",
	}))

	bob, bobConn := connect(t, hub, "conn-bob")
	h.handleFrame(bob, "conn-bob", wsFrame(t, "join_server", JoinServerPayload{
		Username: "bob",
		ServerID: snap.ServerID,
	}))

	bobJoined := bobConn.next(t)
	require.Equal(t, "joined_server", bobJoined.Type)
	var bobSnap chat.RoomSnapshot
	require.NoError(t, json.Unmarshal(bobJoined.Payload, &bobSnap))
	require.Len(t, bobSnap.History, 1, "snapshot must carry the earlier message")
	assert.Equal(t, "early bird", bobSnap.History[0].Text)
	require.Equal(t, "user_list", bobConn.next(t).Type)

	bus.flush()

	// alice sees the create user_list, the message, and the join
	// user_list arrive in order.
	assert.Equal(t, "user_list", aliceConn.next(t).Type)
	chatFrame := aliceConn.next(t)
	require.Equal(t, "chat_message", chatFrame.Type)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(chatFrame.Payload, &msg))
	assert.Equal(t, "early bird", msg.Text)
	assert.Equal(t, "user_list", aliceConn.next(t).Type)

	// bob already has the message in his snapshot, so the fan-out
	// skips him and he only sees the user lists.
	assert.Equal(t, "user_list", bobConn.next(t).Type)
	assert.Equal(t, "user_list", bobConn.next(t).Type)
	bobConn.expectNone(t)
}

func TestHandlers_MessageAfterJoinReachesJoiner(t *testing.T) {
	h, hub, bus := newTestHandlers(t)

	alice, aliceConn := connect(t, hub, "conn-alice")
	h.handleFrame(alice, "conn-alice", wsFrame(t, "create_server", CreateServerPayload{
		Username:   "alice",
		ServerName: "Room A",
	}))
	joined := aliceConn.next(t)
	var snap chat.RoomSnapshot
	require.NoError(t, json.Unmarshal(joined.Payload, &snap))

	bob, bobConn := connect(t, hub, "conn-bob")
	h.handleFrame(bob, "conn-bob", wsFrame(t, "join_server", JoinServerPayload{
		Username: "bob",
		ServerID: snap.ServerID,
	}))
	require.Equal(t, "joined_server", bobConn.next(t).Type)
	require.Equal(t, "user_list", bobConn.next(t).Type)

	h.handleFrame(alice, "conn-alice", wsFrame(t, "chat_message", ChatMessagePayload{
		Username: "alice",
		ServerID: snap.ServerID,
		Type:     "text",
		Text:     "after join",
	}))
	bus.flush()

	kinds := make(map[string]int)
	for i := 0; i < 3; i++ {
		kinds[bobConn.next(t).Type]++
	}
	assert.Equal(t, 1, kinds["chat_message"], "messages sent after the join must still arrive")
	assert.Equal(t, 2, kinds["user_list"])
}
