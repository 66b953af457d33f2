package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chat-relay/events"
)

// Module consumes room events off the bus and fans them out to the
// websocket connections bound to each room.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - websocket hub running")
	return nil
}

// Stop shuts down the hub and closes all client connections.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserListV1, m.handleUserList, m,
	); err != nil {
		return fmt.Errorf("failed to register UserList consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: MessageSent, UserList, RoomCreated")
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	data, err := EncodeFrame("chat_message", event.Message)
	if err != nil {
		log.Printf("[broadcast] Failed to encode chat_message frame: %v", err)
		return nil
	}
	m.hub.Broadcast(event.RoomCode, event.Seq, data)
	return nil
}

func (m *Module) handleUserList(_ context.Context, event events.UserListEvent, _ *mono.Msg) error {
	data, err := EncodeFrame("user_list", event.Users)
	if err != nil {
		log.Printf("[broadcast] Failed to encode user_list frame: %v", err)
		return nil
	}
	m.hub.Broadcast(event.RoomCode, 0, data)
	return nil
}

// handleRoomCreated only logs: room codes are join capabilities, so new
// rooms are never announced to connected clients.
func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Room %s (%q) created by %s", event.RoomCode, event.RoomName, event.CreatedBy)
	return nil
}

// GetHub returns the websocket hub for the gateway module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
