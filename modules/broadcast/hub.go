package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Conn is the write side of a client connection. *websocket.Conn satisfies
// it; tests use a recording fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the package.
const textMessage = 1

// Frame is the outbound wire envelope. Type carries the event name
// (joined_server, user_list, chat_message, server_error).
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// EncodeFrame marshals an event payload into a wire frame.
func EncodeFrame(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: eventType, Payload: data})
}

// EncodeErrorFrame marshals a server_error frame.
func EncodeErrorFrame(message string) ([]byte, error) {
	return json.Marshal(Frame{Type: "server_error", Error: message})
}

// Client represents a connected client.
type Client struct {
	ID       string
	Username string
	RoomCode string
	Conn     Conn

	writeMu sync.Mutex
}

// Send writes a frame to the client. Writes are serialized per client so
// the hub's fan-out and the gateway's direct replies never interleave on
// the socket.
func (c *Client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(textMessage, data)
}

// Hub tracks connections and which room each one is bound to, and fans
// frames out to the members of a room. Each binding carries the room
// sequence the client's join snapshot covered; sequenced frames at or
// below it are suppressed for that client, so a message never arrives
// both in the snapshot and as a fan-out.
type Hub struct {
	clients    map[string]*Client           // clientID -> Client
	rooms      map[string]map[string]uint64 // room code -> clientID -> snapshot seq
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomFrame
	done       chan struct{}
	mu         sync.RWMutex
}

// roomFrame is a frame addressed to every connection bound to a room.
// Seq 0 means unsequenced (user_list); those always go through.
type roomFrame struct {
	RoomCode string
	Seq      uint64
	Data     []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]uint64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomFrame, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case frame := <-h.broadcast:
			h.handleBroadcast(frame)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]uint64)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.RoomCode != "" {
		h.bindLocked(client.ID, client.RoomCode, 0)
	}
	log.Printf("[hub] Client %s (%s) registered", client.ID, client.Username)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	h.unbindLocked(client.ID, client.RoomCode)
	log.Printf("[hub] Client %s (%s) unregistered", client.ID, client.Username)
}

func (h *Hub) handleBroadcast(frame *roomFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs, ok := h.rooms[frame.RoomCode]
	if !ok {
		return
	}
	for clientID, afterSeq := range clientIDs {
		if frame.Seq != 0 && frame.Seq <= afterSeq {
			// The client's join snapshot already carried this message.
			continue
		}
		if client, ok := h.clients[clientID]; ok {
			if err := client.Send(frame.Data); err != nil {
				log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
			}
		}
	}
}

func (h *Hub) bindLocked(clientID, roomCode string, afterSeq uint64) {
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]uint64)
	}
	h.rooms[roomCode][clientID] = afterSeq
}

func (h *Hub) unbindLocked(clientID, roomCode string) {
	if roomCode == "" || h.rooms[roomCode] == nil {
		return
	}
	delete(h.rooms[roomCode], clientID)
	if len(h.rooms[roomCode]) == 0 {
		delete(h.rooms, roomCode)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a frame for every connection bound to a room. Pass
// the room sequence of the message for chat frames, or 0 for frames
// that should reach every member regardless of join time.
func (h *Hub) Broadcast(roomCode string, seq uint64, data []byte) {
	h.broadcast <- &roomFrame{RoomCode: roomCode, Seq: seq, Data: data}
}

// JoinRoom binds a client to a room, leaving any previous one.
// afterSeq is the room sequence the client's join snapshot covered;
// sequenced frames at or below it are not delivered to this client.
func (h *Hub) JoinRoom(clientID, roomCode string, afterSeq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}

	h.unbindLocked(clientID, client.RoomCode)
	client.RoomCode = roomCode
	h.bindLocked(clientID, roomCode, afterSeq)
	log.Printf("[hub] Client %s bound to room %s", clientID, roomCode)
}

// GetClient returns a client by ID.
func (h *Hub) GetClient(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of connections bound to a room.
func (h *Hub) RoomClientCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.rooms[roomCode]; ok {
		return len(clients)
	}
	return 0
}
