package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"golang.org/x/sync/singleflight"
)

// Module provides gif search backed by the Giphy API.
type Module struct {
	client  *GiphyClient
	sfGroup singleflight.Group // Collapses concurrent searches for the same query
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new media module.
func NewModule(apiKey, baseURL string) *Module {
	return &Module{
		client: NewGiphyClient(apiKey, baseURL),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "media"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	if m.client.apiKey == "" {
		log.Println("[media] Warning: no Giphy API key configured, searches will fail")
	}
	log.Println("[media] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[media] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.client.apiKey == "" {
		return mono.HealthStatus{
			Healthy: false,
			Message: "no API key configured",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"search",
		json.Unmarshal,
		json.Marshal,
		m.search,
	); err != nil {
		return fmt.Errorf("failed to register search service: %w", err)
	}

	log.Println("[media] Registered services: search")
	return nil
}

// search handles the search service request. Concurrent requests for
// the same query share a single upstream call.
func (m *Module) search(ctx context.Context, req SearchRequest, _ *mono.Msg) (SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SearchResponse{}, fmt.Errorf("search query is required")
	}

	sfKey := fmt.Sprintf("%s:%d", strings.ToLower(query), req.Limit)
	val, err, _ := m.sfGroup.Do(sfKey, func() (any, error) {
		return m.client.Search(ctx, query, req.Limit)
	})
	if err != nil {
		return SearchResponse{}, err
	}

	gifs, ok := val.([]Gif)
	if !ok {
		return SearchResponse{}, fmt.Errorf("unexpected search result type")
	}

	return SearchResponse{Query: query, Gifs: gifs}, nil
}
