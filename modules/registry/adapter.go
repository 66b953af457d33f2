package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chat-relay/domain/chat"
)

// RegistryPort is the read-only view other modules get of the registry.
type RegistryPort interface {
	GetRoom(ctx context.Context, code string) (*GetRoomResponse, error)
	History(ctx context.Context, code string, limit int) ([]chat.Message, error)
	Stats(ctx context.Context) (*StatsResponse, error)
}

// registryAdapter implements RegistryPort over the service container.
type registryAdapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a typed client for the registry services. container is
// the registry's ServiceContainer received via SetDependencyServiceContainer.
func NewAdapter(container mono.ServiceContainer) RegistryPort {
	if container == nil {
		panic("registry adapter requires non-nil ServiceContainer")
	}
	return &registryAdapter{container: container}
}

// GetRoom resolves a room code to its name and member list.
func (a *registryAdapter) GetRoom(ctx context.Context, code string) (*GetRoomResponse, error) {
	req := GetRoomRequest{RoomCode: code}
	var resp GetRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get_room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get_room service call failed: %w", err)
	}
	return &resp, nil
}

// History fetches up to limit recent messages for a room.
func (a *registryAdapter) History(ctx context.Context, code string, limit int) ([]chat.Message, error) {
	req := HistoryRequest{RoomCode: code, Limit: limit}
	var resp HistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"history",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("history service call failed: %w", err)
	}
	return resp.Messages, nil
}

// Stats returns room and session counts.
func (a *registryAdapter) Stats(ctx context.Context) (*StatsResponse, error) {
	req := StatsRequest{}
	var resp StatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"stats",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("stats service call failed: %w", err)
	}
	return &resp, nil
}
