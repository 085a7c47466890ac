package storage

import (
	"context"
	"errors"
	"sync"

	appfinance "github.com/erp/ledger/internal/application/finance"
)

var _ appfinance.AttachmentVerifier = (*MemoryAttachmentStore)(nil)

// MemoryAttachmentStore is an in-process attachment registry used when
// object storage is disabled
type MemoryAttachmentStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewMemoryAttachmentStore creates an empty store holding keys
func NewMemoryAttachmentStore(keys ...string) *MemoryAttachmentStore {
	s := &MemoryAttachmentStore{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Put records key as uploaded
func (s *MemoryAttachmentStore) Put(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

// ObjectExists reports whether key was put
func (s *MemoryAttachmentStore) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}
