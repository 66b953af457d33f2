package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeConn records frames written to it.
type fakeConn struct {
	frames chan []byte
	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.frames <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) next(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-c.frames:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
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

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub
}

func registerClient(t *testing.T, hub *Hub, id string) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	client := &Client{ID: id, Conn: conn}
	hub.Register(client)

	// Registration goes through the hub loop; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClient(id) == nil {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return client, conn
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := startHub(t)

	_, aliceConn := registerClient(t, hub, "alice")
	_, bobConn := registerClient(t, hub, "bob")
	_, eveConn := registerClient(t, hub, "eve")

	hub.JoinRoom("alice", "ABC123", 0)
	hub.JoinRoom("bob", "ABC123", 0)
	hub.JoinRoom("eve", "XYZ789", 0)

	frame, err := EncodeFrame("chat_message", map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	hub.Broadcast("ABC123", 1, frame)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		var got Frame
		if err := json.Unmarshal(conn.next(t), &got); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		if got.Type != "chat_message" {
			t.Errorf("frame type = %q, want chat_message", got.Type)
		}
	}

	// eve is bound to another room and must not receive the frame.
	eveConn.expectNone(t)
}

func TestHub_SuppressesFramesCoveredBySnapshot(t *testing.T) {
	hub := startHub(t)

	_, aliceConn := registerClient(t, hub, "alice")
	_, bobConn := registerClient(t, hub, "bob")

	hub.JoinRoom("alice", "ABC123", 0)
	// bob's join snapshot already carried everything up to sequence 5.
	hub.JoinRoom("bob", "ABC123", 5)

	// A message sequenced at 5 raced bob's join; only alice gets it.
	hub.Broadcast("ABC123", 5, []byte(`{"type":"chat_message"}`))
	aliceConn.next(t)
	bobConn.expectNone(t)

	// The next message orders after the snapshot and reaches both.
	hub.Broadcast("ABC123", 6, []byte(`{"type":"chat_message"}`))
	aliceConn.next(t)
	bobConn.next(t)

	// Unsequenced frames are never suppressed.
	hub.Broadcast("ABC123", 0, []byte(`{"type":"user_list"}`))
	aliceConn.next(t)
	bobConn.next(t)
}

func TestHub_BroadcastToUnknownRoom(t *testing.T) {
	hub := startHub(t)
	_, conn := registerClient(t, hub, "alice")

	hub.Broadcast("ZZZZZZ", 1, []byte(`{"type":"chat_message"}`))
	conn.expectNone(t)
}

func TestHub_JoinRoomRebinds(t *testing.T) {
	hub := startHub(t)
	_, conn := registerClient(t, hub, "alice")

	hub.JoinRoom("alice", "ABC123", 0)
	hub.JoinRoom("alice", "XYZ789", 0)

	if got := hub.RoomClientCount("ABC123"); got != 0 {
		t.Errorf("RoomClientCount(old room) = %d, want 0", got)
	}
	if got := hub.RoomClientCount("XYZ789"); got != 1 {
		t.Errorf("RoomClientCount(new room) = %d, want 1", got)
	}

	hub.Broadcast("XYZ789", 0, []byte(`{"type":"user_list"}`))
	conn.next(t)
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := startHub(t)
	client, conn := registerClient(t, hub, "alice")
	hub.JoinRoom("alice", "ABC123", 0)

	hub.Unregister(client)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never unregistered")
		}
		time.Sleep(time.Millisecond)
	}

	hub.Broadcast("ABC123", 1, []byte(`{"type":"chat_message"}`))
	conn.expectNone(t)

	if got := hub.RoomClientCount("ABC123"); got != 0 {
		t.Errorf("RoomClientCount() after unregister = %d, want 0", got)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := newFakeConn()
	client := &Client{ID: "alice", Conn: conn}
	hub.Register(client)

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClient("alice") == nil {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	hub.Wait()

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("connection was not closed on shutdown")
	}
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() after shutdown = %d, want 0", got)
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := EncodeFrame("joined_server", map[string]string{"server_id": "ABC123"})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("EncodeFrame() produced invalid JSON: %v", err)
	}
	if frame.Type != "joined_server" {
		t.Errorf("frame type = %q, want joined_server", frame.Type)
	}

	var payload map[string]string
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatalf("frame payload invalid: %v", err)
	}
	if payload["server_id"] != "ABC123" {
		t.Errorf("payload server_id = %q, want ABC123", payload["server_id"])
	}
}

func TestEncodeErrorFrame(t *testing.T) {
	data, err := EncodeErrorFrame("Room not found")
	if err != nil {
		t.Fatalf("EncodeErrorFrame() error = %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("EncodeErrorFrame() produced invalid JSON: %v", err)
	}
	if frame.Type != "server_error" {
		t.Errorf("frame type = %q, want server_error", frame.Type)
	}
	if frame.Error != "Room not found" {
		t.Errorf("frame error = %q, want %q", frame.Error, "Room not found")
	}
}
