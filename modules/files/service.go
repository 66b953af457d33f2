package files

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Service provides upload storage operations on top of an ObjectStore.
type Service struct {
	store ObjectStore

	// storeMu serializes the collision check with the write, so two
	// concurrent uploads of the same name cannot both pass the check
	// and overwrite each other.
	storeMu sync.Mutex
}

// NewService creates a new upload service.
func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// Store sanitizes the filename, resolves name collisions with a random
// prefix, and writes the upload. It returns the final stored name.
func (s *Service) Store(ctx context.Context, name string, data []byte, contentType string) (string, int64, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("upload data is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storageName := SanitizeFilename(name)

	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if _, err := s.store.GetInfo(ctx, storageName); err == nil {
		storageName = fmt.Sprintf("%s_%s", uuid.NewString()[:8], storageName)
	}

	info, err := s.store.Put(ctx, storageName, data, contentType)
	if err != nil {
		return "", 0, fmt.Errorf("failed to store upload: %w", err)
	}

	return info.Name, int64(info.Size), nil
}

// Fetch retrieves an upload by its stored name.
func (s *Service) Fetch(ctx context.Context, name string) ([]byte, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("upload name is required")
	}

	data, info, err := s.store.Get(ctx, SanitizeFilename(name))
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch upload: %w", err)
	}

	return data, info.ContentType, nil
}
