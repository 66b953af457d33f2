package files

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module stores chat uploads in a NATS JetStream Object Store bucket.
type Module struct {
	store   *JetStreamObjectStore
	service *Service
	natsURL string
	bucket  string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new files module.
func NewModule(natsURL, bucket string) *Module {
	return &Module{
		natsURL: natsURL,
		bucket:  bucket,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "files"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"store_upload",
		json.Unmarshal,
		json.Marshal,
		m.storeUpload,
	); err != nil {
		return fmt.Errorf("failed to register store_upload service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"fetch_upload",
		json.Unmarshal,
		json.Marshal,
		m.fetchUpload,
	); err != nil {
		return fmt.Errorf("failed to register fetch_upload service: %w", err)
	}

	log.Println("[files] Registered services: store_upload, fetch_upload")
	return nil
}

// Start connects to NATS JetStream and prepares the upload bucket.
func (m *Module) Start(ctx context.Context) error {
	var err error
	m.store, err = NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	if err := m.store.Init(ctx); err != nil {
		m.store.Close()
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	m.service = NewService(m.store)

	log.Printf("[files] Module started (NATS: %s, bucket: %s)", m.natsURL, m.bucket)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[files] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	healthy := m.store != nil && m.store.IsConnected()
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"nats_url": m.natsURL,
			"bucket":   m.bucket,
		},
	}
}

// storeUpload handles the store_upload service request.
func (m *Module) storeUpload(ctx context.Context, req StoreRequest, _ *mono.Msg) (StoreResponse, error) {
	name, size, err := m.service.Store(ctx, req.Name, req.Data, req.ContentType)
	if err != nil {
		return StoreResponse{}, err
	}
	return StoreResponse{Name: name, Size: size}, nil
}

// fetchUpload handles the fetch_upload service request.
func (m *Module) fetchUpload(ctx context.Context, req FetchRequest, _ *mono.Msg) (FetchResponse, error) {
	data, contentType, err := m.service.Fetch(ctx, req.Name)
	if err != nil {
		return FetchResponse{}, err
	}
	return FetchResponse{Name: req.Name, Data: data, ContentType: contentType}, nil
}
