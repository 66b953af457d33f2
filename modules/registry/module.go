package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/events"
)

// Module wires the room registry into the application: it owns the store,
// session tracker and engine, publishes room events on the bus, and exposes
// read-only request/reply services for the REST surface.
type Module struct {
	store    *RoomStore
	sessions *SessionTracker
	engine   *Engine
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ EventSink                  = (*Module)(nil)
)

// NewModule creates the registry module.
func NewModule(maxHistory int, logger types.Logger) *Module {
	m := &Module{
		store:    NewRoomStore(maxHistory),
		sessions: NewSessionTracker(),
		logger:   logger,
	}
	m.engine = NewEngine(m.store, m.sessions, m, logger)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "registry"
}

// Start is a no-op; the registry holds only in-process state.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("registry module started")
	return nil
}

// Stop is a no-op.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("registry module stopped")
	return nil
}

// Engine returns the intent engine for the websocket hot path.
func (m *Module) Engine() *Engine {
	return m.engine
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.UserListV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
	}
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":    m.store.RoomCount(),
			"sessions": m.sessions.Count(),
		},
	}
}

// RegisterServices registers the read-only request/reply services.
// The framework prefixes names with "services.registry.".
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get_room", json.Unmarshal, json.Marshal, m.getRoom,
	); err != nil {
		return fmt.Errorf("failed to register get_room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "history", json.Unmarshal, json.Marshal, m.history,
	); err != nil {
		return fmt.Errorf("failed to register history service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "stats", json.Unmarshal, json.Marshal, m.stats,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}

	m.logger.Info("registered registry services",
		"services", []string{"get_room", "history", "stats"})
	return nil
}

func (m *Module) getRoom(_ context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	code := NormalizeCode(req.RoomCode)
	snap, err := m.store.Snapshot(code)
	if err != nil {
		return GetRoomResponse{}, err
	}
	return GetRoomResponse{
		RoomCode: snap.ServerID,
		RoomName: snap.ServerName,
		Users:    snap.UsersOnline,
	}, nil
}

func (m *Module) history(_ context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	code := NormalizeCode(req.RoomCode)
	messages, err := m.store.History(code, req.Limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{RoomCode: code, Messages: messages}, nil
}

func (m *Module) stats(_ context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	return StatsResponse{
		Rooms:    m.store.RoomCount(),
		Sessions: m.sessions.Count(),
	}, nil
}

// EventSink implementation. The engine calls these after releasing store
// locks; failures are logged and never propagate back into room state.

// MessageSent publishes a MessageSent event for the broadcast module.
func (m *Module) MessageSent(code string, seq uint64, msg chat.Message) {
	event := events.MessageSentEvent{RoomCode: code, Seq: seq, Message: msg}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Error("failed to publish MessageSent", "room", code, "error", err)
	}
}

// UserList publishes the room's updated member list.
func (m *Module) UserList(code string, users []string) {
	event := events.UserListEvent{RoomCode: code, Users: users}
	if err := events.UserListV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Error("failed to publish UserList", "room", code, "error", err)
	}
}

// RoomCreated publishes a RoomCreated event.
func (m *Module) RoomCreated(code, name, createdBy string) {
	event := events.RoomCreatedEvent{
		RoomCode:  code,
		RoomName:  name,
		CreatedBy: createdBy,
		Timestamp: time.Now(),
	}
	if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Error("failed to publish RoomCreated", "room", code, "error", err)
	}
}
