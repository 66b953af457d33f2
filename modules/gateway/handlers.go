package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/files"
	"github.com/example/chat-relay/modules/media"
	"github.com/example/chat-relay/modules/registry"
)

// Rate limiting constants
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// CreateServerPayload is the payload for creating a room.
type CreateServerPayload struct {
	Username   string `json:"username"`
	ServerName string `json:"server_name"`
}

// JoinServerPayload is the payload for joining a room by code.
type JoinServerPayload struct {
	Username string `json:"username"`
	ServerID string `json:"server_id"`
}

// ChatMessagePayload is the payload for posting a message.
type ChatMessagePayload struct {
	Username string `json:"username"`
	ServerID string `json:"server_id"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	Content  string `json:"content"`
	GifTitle string `json:"gif_title"`
	ReplyTo  string `json:"reply_to"`
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// Handlers contains HTTP and WebSocket handlers.
type Handlers struct {
	engine        *registry.Engine
	hub           *broadcast.Hub
	registryPort  registry.RegistryPort
	mediaPort     media.MediaPort
	filesPort     files.FilesPort
	maxUploadSize int64
	rateLimiters  sync.Map // connID -> *rateLimiter
	logger        types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(engine *registry.Engine, hub *broadcast.Hub, moduleLogger types.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		hub:    hub,
		logger: moduleLogger,
	}
}

// HandleWebSocket handles WebSocket connections.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := &broadcast.Client{ID: connID, Conn: c}
	h.hub.Register(client)
	h.rateLimiters.Store(connID, newRateLimiter(burstSize, messagesPerSecond))

	defer func() {
		h.rateLimiters.Delete(connID)
		h.engine.Disconnect(connID)
		h.hub.Unregister(client)
	}()

	h.logger.Info("WebSocket connected", "conn_id", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "conn_id", connID, "error", err)
			}
			break
		}

		var frame broadcast.Frame
		if err := json.Unmarshal(msgBytes, &frame); err != nil {
			h.sendError(client, "Invalid message format")
			continue
		}

		h.handleFrame(client, connID, frame)
	}

	h.logger.Info("WebSocket disconnected", "conn_id", connID)
}

// handleFrame dispatches an incoming WebSocket frame.
func (h *Handlers) handleFrame(client *broadcast.Client, connID string, frame broadcast.Frame) {
	switch frame.Type {
	case "create_server":
		h.handleCreateServer(client, connID, frame.Payload)
	case "join_server":
		h.handleJoinServer(client, connID, frame.Payload)
	case "chat_message":
		h.handleChatMessage(client, connID, frame.Payload)
	default:
		h.sendError(client, "Unknown message type: "+frame.Type)
	}
}

// handleCreateServer processes room creation requests.
func (h *Handlers) handleCreateServer(client *broadcast.Client, connID string, payload json.RawMessage) {
	var req CreateServerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(client, "Invalid create_server payload")
		return
	}

	snap, err := h.engine.CreateRoom(connID, req.Username, req.ServerName)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	h.hub.JoinRoom(connID, snap.ServerID, snap.Seq)
	h.sendFrame(client, "joined_server", snap)
	h.sendFrame(client, "user_list", snap.UsersOnline)
}

// handleJoinServer processes join requests.
func (h *Handlers) handleJoinServer(client *broadcast.Client, connID string, payload json.RawMessage) {
	var req JoinServerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(client, "Invalid join_server payload")
		return
	}

	snap, err := h.engine.JoinRoom(connID, req.Username, req.ServerID)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	h.hub.JoinRoom(connID, snap.ServerID, snap.Seq)
	h.sendFrame(client, "joined_server", snap)
	// The user_list event for this join raced the bus before the hub
	// binding existed, so hand the joiner its copy directly. A second
	// delivery through the bus replaces the list with identical content.
	h.sendFrame(client, "user_list", snap.UsersOnline)
}

// handleChatMessage processes chat messages.
func (h *Handlers) handleChatMessage(client *broadcast.Client, connID string, payload json.RawMessage) {
	if limiterVal, ok := h.rateLimiters.Load(connID); ok {
		limiter := limiterVal.(*rateLimiter)
		if !limiter.allow() {
			h.sendError(client, "Rate limit exceeded, please slow down")
			return
		}
	}

	var req ChatMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(client, "Invalid chat_message payload")
		return
	}

	_, err := h.engine.PostMessage(connID, registry.MessageInput{
		Username:   req.Username,
		RoomCode:   req.ServerID,
		Kind:       chat.Kind(req.Type),
		Text:       req.Text,
		ContentURL: req.Content,
		MediaTitle: req.GifTitle,
		ReplyTo:    req.ReplyTo,
	})
	if err != nil {
		// Empty messages are dropped without a reply.
		if errors.Is(err, registry.ErrEmptyMessage) {
			return
		}
		h.sendError(client, err.Error())
	}
}

// sendFrame sends a typed frame directly to one client.
func (h *Handlers) sendFrame(client *broadcast.Client, eventType string, data any) {
	frame, err := broadcast.EncodeFrame(eventType, data)
	if err != nil {
		h.logger.Error("Failed to encode frame", "type", eventType, "error", err)
		return
	}
	if err := client.Send(frame); err != nil {
		h.logger.Error("Failed to send frame", "type", eventType, "error", err)
	}
}

// sendError sends a server_error frame directly to one client.
func (h *Handlers) sendError(client *broadcast.Client, errMsg string) {
	frame, err := broadcast.EncodeErrorFrame(errMsg)
	if err != nil {
		h.logger.Error("Failed to encode error frame", "error", err)
		return
	}
	if err := client.Send(frame); err != nil {
		h.logger.Error("Failed to send error frame", "error", err)
	}
}

// REST Handlers

// UploadFile handles file uploads (POST /upload).
func (h *Handlers) UploadFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	if fileHeader.Size > h.maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file exceeds maximum size of %d bytes", h.maxUploadSize),
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read upload",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read upload",
		})
	}
	if int64(len(data)) > h.maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file exceeds maximum size of %d bytes", h.maxUploadSize),
		})
	}

	stored, err := h.filesPort.StoreUpload(
		c.UserContext(),
		fileHeader.Filename,
		data,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store upload",
		})
	}

	username := c.FormValue("username")
	serverID := c.FormValue("server_id")
	fileURL := "/uploads/" + stored.Name

	// Unknown rooms drop the message silently; the upload itself succeeds.
	h.engine.PostFile(username, serverID, fileURL, stored.Name)

	return c.JSON(fiber.Map{
		"file_url":  fileURL,
		"file_name": stored.Name,
		"size":      stored.Size,
	})
}

// ServeUpload serves a stored upload (GET /uploads/:name).
func (h *Handlers) ServeUpload(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return fiber.ErrBadRequest
	}

	resp, err := h.filesPort.FetchUpload(c.UserContext(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "upload not found",
		})
	}

	c.Set(fiber.HeaderContentType, resp.ContentType)
	return c.Send(resp.Data)
}

// SearchGifs handles gif search requests (GET /search-gifs).
func (h *Handlers) SearchGifs(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	limit := c.QueryInt("limit", 0)
	resp, err := h.mediaPort.Search(c.UserContext(), query, limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "gif search failed",
		})
	}

	return c.JSON(resp)
}

// GetRoom handles room info requests (GET /api/v1/rooms/:code).
func (h *Handlers) GetRoom(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return fiber.ErrBadRequest
	}

	resp, err := h.registryPort.GetRoom(c.UserContext(), code)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Room not found",
		})
	}

	return c.JSON(resp)
}

// GetRoomHistory handles room history requests (GET /api/v1/rooms/:code/history).
func (h *Handlers) GetRoomHistory(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return fiber.ErrBadRequest
	}

	limit := c.QueryInt("limit", 50)
	if limit > 100 {
		limit = 100
	}

	messages, err := h.registryPort.History(c.UserContext(), code, limit)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Room not found",
		})
	}

	return c.JSON(fiber.Map{
		"server_id": registry.NormalizeCode(code),
		"messages":  messages,
		"total":     len(messages),
	})
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	stats := fiber.Map{
		"status":  "healthy",
		"service": "chat-relay",
		"clients": h.hub.ClientCount(),
	}
	if h.registryPort != nil {
		if s, err := h.registryPort.Stats(context.Background()); err == nil {
			stats["rooms"] = s.Rooms
			stats["sessions"] = s.Sessions
		}
	}
	return c.JSON(stats)
}
