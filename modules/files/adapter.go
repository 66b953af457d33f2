package files

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// FilesPort defines the interface for upload operations from other modules.
type FilesPort interface {
	StoreUpload(ctx context.Context, name string, data []byte, contentType string) (*StoreResponse, error)
	FetchUpload(ctx context.Context, name string) (*FetchResponse, error)
}

// filesAdapter wraps ServiceContainer for type-safe cross-module communication.
type filesAdapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new adapter for files services.
func NewAdapter(container mono.ServiceContainer) FilesPort {
	if container == nil {
		panic("files adapter requires non-nil ServiceContainer")
	}
	return &filesAdapter{container: container}
}

// StoreUpload stores an upload via the store_upload service.
func (a *filesAdapter) StoreUpload(ctx context.Context, name string, data []byte, contentType string) (*StoreResponse, error) {
	req := StoreRequest{
		Name:        name,
		Data:        data,
		ContentType: contentType,
	}
	var resp StoreResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"store_upload",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("store_upload service call failed: %w", err)
	}
	return &resp, nil
}

// FetchUpload retrieves an upload via the fetch_upload service.
func (a *filesAdapter) FetchUpload(ctx context.Context, name string) (*FetchResponse, error) {
	req := FetchRequest{Name: name}
	var resp FetchResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"fetch_upload",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("fetch_upload service call failed: %w", err)
	}
	return &resp, nil
}
