package media

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MediaPort defines the interface for gif search from other modules.
type MediaPort interface {
	Search(ctx context.Context, query string, limit int) (*SearchResponse, error)
}

// mediaAdapter wraps ServiceContainer for type-safe cross-module communication.
type mediaAdapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new adapter for media services.
func NewAdapter(container mono.ServiceContainer) MediaPort {
	if container == nil {
		panic("media adapter requires non-nil ServiceContainer")
	}
	return &mediaAdapter{container: container}
}

// Search performs a gif search via the search service.
func (a *mediaAdapter) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	req := SearchRequest{Query: query, Limit: limit}
	var resp SearchResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"search",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("search service call failed: %w", err)
	}
	return &resp, nil
}
